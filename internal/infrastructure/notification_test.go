package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/yourusername/tubetrove-go/internal/domain"
)

type recordedCommand struct {
	name string
	args []string
}

func newRecordingNotifier(config *domain.NotificationConfig, err error) (*NotificationService, *[]recordedCommand) {
	var calls []recordedCommand
	n := NewNotificationService(config, zap.NewNop())
	n.run = func(name string, args ...string) error {
		calls = append(calls, recordedCommand{name: name, args: args})
		return err
	}
	return n, &calls
}

func TestNotificationService_Disabled(t *testing.T) {
	n, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, nil)

	assert.NoError(t, n.Send("t", "m"))
	assert.Empty(t, *calls)
}

func TestNotificationService_NotifySend(t *testing.T) {
	n, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)

	n.NotifyDownloadCompleted(&domain.Download{Title: "song", Format: "mp3"})

	assert.Equal(t, []recordedCommand{{name: "notify-send", args: []string{"Download Completed", "song.mp3"}}}, *calls)
}

func TestNotificationService_OSAScriptEscapesQuotes(t *testing.T) {
	n, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "osascript"}, nil)

	assert.NoError(t, n.Send("Done", `The "Best" Song`))

	if assert.Len(t, *calls, 1) {
		assert.Equal(t, "osascript", (*calls)[0].name)
		assert.Equal(t, `display notification "The \"Best\" Song" with title "Done"`, (*calls)[0].args[1])
	}
}

func TestNotificationService_PropagatesError(t *testing.T) {
	boom := errors.New("no display")
	n, _ := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, boom)

	assert.ErrorIs(t, n.Send("t", "m"), boom)
}

func TestNotificationService_UnknownMethod(t *testing.T) {
	n, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "pigeon"}, nil)

	assert.NoError(t, n.Send("t", "m"))
	assert.Empty(t, *calls)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abc...", truncateString("abcdef", 3))
	assert.Equal(t, "héé...", truncateString("héééé", 3))
}
