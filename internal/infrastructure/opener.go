package infrastructure

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// SystemOpener launches files with the operating system's default handler
type SystemOpener struct {
	goos  string
	start func(name string, args ...string) error
}

// NewSystemOpener creates an opener for the running OS
func NewSystemOpener() *SystemOpener {
	return &SystemOpener{
		goos: runtime.GOOS,
		start: func(name string, args ...string) error {
			cmd := exec.Command(name, args...)
			if err := cmd.Start(); err != nil {
				return err
			}
			// the handler outlives us; reap it without waiting on the caller
			go cmd.Wait()
			return nil
		},
	}
}

// Open hands path to the default application and returns once it has started
func (o *SystemOpener) Open(path string) error {
	name, args := openCommand(o.goos, path)
	if err := o.start(name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}

func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "windows":
		// not cmd /c start: titles may contain & ^ % which cmd would interpret
		return "explorer", []string{strings.ReplaceAll(path, "/", `\`)}
	case "darwin":
		return "open", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}
