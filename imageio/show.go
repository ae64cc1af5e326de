package imageio

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"runtime"
)

// viewer returns the command that opens a file with the desktop's default
// application.
func viewer(goos, path string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path)
	}
	return exec.Command("xdg-open", path)
}

// Show writes img to a temporary PNG and opens it in the default image
// viewer. The file is left behind for the viewer to read.
func Show(img image.Image) error {
	f, err := os.CreateTemp("", "depthmap-*.png")
	if err != nil {
		return fmt.Errorf("CreateTemp: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return err
	}
	if err := Save(path, img, PNG); err != nil {
		return err
	}
	cmd := viewer(runtime.GOOS, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("unable to open %v with %v: %w", path, cmd.Args[0], err)
	}
	return cmd.Process.Release()
}
