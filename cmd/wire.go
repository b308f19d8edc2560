package cmd

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	statusadapter "github.com/bnema/lonewatch/internal/adapters/render/status"
	jsonrepo "github.com/bnema/lonewatch/internal/adapters/repo/json"
	tomlrepo "github.com/bnema/lonewatch/internal/adapters/repo/toml"
	"github.com/bnema/lonewatch/internal/application"
	"github.com/bnema/lonewatch/internal/ports"
)

const logPrefix = "lonewatch: "

type app struct {
	config         config
	logger         *log.Logger
	repo           ports.SnapshotRepository
	statusRenderer func(application.StatusReport, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp(cfg config, logOutput io.Writer) (*app, error) {
	repo, err := newSnapshotRepository(cfg.SaveFilename)
	if err != nil {
		return nil, fmt.Errorf("wire snapshot repository: %w", err)
	}

	return &app{
		config:         cfg,
		logger:         log.New(logOutput, logPrefix, log.LstdFlags),
		repo:           repo,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}

// newSnapshotRepository picks the file format from the extension; anything
// other than .toml is JSON.
func newSnapshotRepository(path string) (ports.SnapshotRepository, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return tomlrepo.NewRepository(path)
	}

	return jsonrepo.NewRepository(path)
}
