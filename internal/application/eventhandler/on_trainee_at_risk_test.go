package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

type fakeNotifier struct {
	calls     int
	course    string
	subject   string
	body      string
	notifyErr error
}

func (f *fakeNotifier) NotifyStaff(_ context.Context, course, subject, body string) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.calls++
	f.course = course
	f.subject = subject
	f.body = body
	return nil
}

func atRiskEvent(login string) shared.TraineeAtRiskEvent {
	return shared.NewTraineeAtRiskEvent(login, "itp", "2025-05", 1234)
}

func TestOnTraineeAtRisk_NotifiesStaff(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnTraineeAtRiskHandler(notifier, nil, DefaultAtRiskConfig())

	require.NoError(t, h.Handle(atRiskEvent("alice")))

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "itp", notifier.course)
	assert.Contains(t, notifier.subject, "alice")
	assert.Contains(t, notifier.body, "12.34%")
}

func TestOnTraineeAtRisk_CooldownSuppressesRepeat(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnTraineeAtRiskHandler(notifier, nil, AtRiskConfig{NotifyCooldown: time.Hour})

	require.NoError(t, h.Handle(atRiskEvent("alice")))
	require.NoError(t, h.Handle(atRiskEvent("alice")))

	assert.Equal(t, 1, notifier.calls)
}

func TestOnTraineeAtRisk_CooldownIsPerTrainee(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnTraineeAtRiskHandler(notifier, nil, AtRiskConfig{NotifyCooldown: time.Hour})

	require.NoError(t, h.Handle(atRiskEvent("alice")))
	require.NoError(t, h.Handle(atRiskEvent("bobsmith")))

	assert.Equal(t, 2, notifier.calls)
}

func TestOnTraineeAtRisk_IgnoresOtherEventTypes(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnTraineeAtRiskHandler(notifier, nil, DefaultAtRiskConfig())

	err := h.Handle(shared.NewRunFailedEvent("run-1", "itp", "May 2025", "boom"))
	assert.NoError(t, err)
	assert.Equal(t, 0, notifier.calls)
}

func TestOnTraineeAtRisk_NotifierFailurePropagates(t *testing.T) {
	notifier := &fakeNotifier{notifyErr: errors.New("webhook 500")}
	h := NewOnTraineeAtRiskHandler(notifier, nil, DefaultAtRiskConfig())

	err := h.Handle(atRiskEvent("alice"))
	assert.Error(t, err)

	// Неудачная доставка не запускает кулдаун: следующая попытка пройдёт.
	notifier.notifyErr = nil
	require.NoError(t, h.Handle(atRiskEvent("alice")))
	assert.Equal(t, 1, notifier.calls)
}

func TestOnTraineeAtRisk_NilNotifierLogsOnly(t *testing.T) {
	h := NewOnTraineeAtRiskHandler(nil, nil, DefaultAtRiskConfig())
	assert.NoError(t, h.Handle(atRiskEvent("alice")))
}
