package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/avvvet/valentine-services/internal/cardsvc/imagestore"
	"github.com/avvvet/valentine-services/internal/client"
	"github.com/avvvet/valentine-services/internal/presentation"
	"github.com/avvvet/valentine-services/internal/reveal"
	"github.com/avvvet/valentine-services/internal/tui"
)

func newClient() *client.Client {
	return client.New(serverURL, &http.Client{Timeout: time.Duration(requestTimeout) * time.Second})
}

// shareLinks returns the recipient's card link and the sender's check link.
func shareLinks(base, slug string) (string, string) {
	base = strings.TrimRight(base, "/")
	return base + "/card/" + slug, base + "/check/" + slug
}

func loadPreset() (presentation.Preset, error) {
	set := presentation.Builtin()
	if presetsFile != "" {
		extra, err := presentation.LoadFile(presetsFile)
		if err != nil {
			return presentation.Preset{}, err
		}
		for name, p := range extra {
			set[name] = p
		}
	}
	return set.Lookup(presetName)
}

// openImage checks an image the same way the card service does before it is
// uploaded.
func openImage(path string) (*client.Image, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.Size() > imagestore.MaxImageSize {
		f.Close()
		return nil, nil, fmt.Errorf("image must be at most %d MB", imagestore.MaxImageSize>>20)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return nil, nil, err
	}
	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		f.Close()
		return nil, nil, fmt.Errorf("%s is not an image (%s)", filepath.Base(path), contentType)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, err
	}

	return &client.Image{Filename: filepath.Base(path), ContentType: contentType, Body: f}, f, nil
}

// runView shows the machine on the terminal until the user quits.
func runView(ctx context.Context, m *reveal.Machine, preset presentation.Preset, demo bool) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse(tcell.MouseMotionEvents)

	v := tui.New(screen, m, tui.Options{Theme: preset.Theme, Demo: demo})
	err = v.Run(ctx)
	m.Teardown()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
