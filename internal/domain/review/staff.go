package review

// CheckStatus records whether staff have vetted a reviewer's work.
type CheckStatus int

const (
	Unchecked CheckStatus = iota
	CheckedAndOk
	CheckedAndCheckAgain
)

// String returns the report form of the status.
func (s CheckStatus) String() string {
	switch s {
	case CheckedAndOk:
		return "checked-and-ok"
	case CheckedAndCheckAgain:
		return "checked-and-check-again"
	default:
		return "unchecked"
	}
}

// ParseCheckStatus maps a stored status string back to the enum.
// Unrecognized values resolve to Unchecked.
func ParseCheckStatus(s string) CheckStatus {
	switch s {
	case "checked-and-ok":
		return CheckedAndOk
	case "checked-and-check-again":
		return CheckedAndCheckAgain
	default:
		return Unchecked
	}
}

// StaffDetails is the internal record staff keep about a reviewer. It is
// never exposed to unauthenticated callers.
type StaffDetails struct {
	Name             string
	AttendedTraining bool
	Checked          CheckStatus
	Quality          string
	Notes            string
}

// StaffDetailsState distinguishes "you may not see this" from "we have
// nothing recorded". The two render differently in reports.
type StaffDetailsState int

const (
	// StaffDetailsHidden means the caller is not authenticated as staff.
	StaffDetailsHidden StaffDetailsState = iota
	// StaffDetailsUnknown means the caller is staff but no record exists.
	StaffDetailsUnknown
	// StaffDetailsKnown means a record exists and is attached.
	StaffDetailsKnown
)

// MaybeStaffDetails gates staff-only details behind authentication.
type MaybeStaffDetails struct {
	state   StaffDetailsState
	details StaffDetails
}

// HiddenStaffDetails is the value returned to unauthenticated callers.
func HiddenStaffDetails() MaybeStaffDetails {
	return MaybeStaffDetails{state: StaffDetailsHidden}
}

// UnknownStaffDetails is the value for staff when no record exists.
func UnknownStaffDetails() MaybeStaffDetails {
	return MaybeStaffDetails{state: StaffDetailsUnknown}
}

// KnownStaffDetails wraps an existing record for a staff caller.
func KnownStaffDetails(d StaffDetails) MaybeStaffDetails {
	return MaybeStaffDetails{state: StaffDetailsKnown, details: d}
}

// State returns the gating state.
func (m MaybeStaffDetails) State() StaffDetailsState {
	return m.state
}

// Details returns the record and whether one is attached.
func (m MaybeStaffDetails) Details() (StaffDetails, bool) {
	return m.details, m.state == StaffDetailsKnown
}
