package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/banshee-data/elevation.report/internal/monitoring"
	"github.com/banshee-data/elevation.report/internal/pointcloud"
	"github.com/banshee-data/elevation.report/internal/request"
)

// Executor runs one fetch request and returns the points it produced, in the
// request's output CRS.
type Executor interface {
	Execute(ctx context.Context, req *request.FetchRequest) (*pointcloud.PointSet, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req *request.FetchRequest) (*pointcloud.PointSet, error)

func (f ExecutorFunc) Execute(ctx context.Context, req *request.FetchRequest) (*pointcloud.PointSet, error) {
	return f(ctx, req)
}

// PDALExecutor runs "pdal pipeline --stdin" with the request's pipeline
// document and reads back the text writer's CSV.
type PDALExecutor struct {
	// Path is the pdal binary; "pdal" on PATH when empty.
	Path string
	// WorkDir holds per-request scratch directories; os.TempDir when empty.
	WorkDir string
	// Probe, when set, checks the source before PDAL is started.
	Probe *EPTProbe
}

// transientMarkers are stderr fragments PDAL and its curl/S3 layers emit for
// conditions that may clear on retry.
var transientMarkers = []string{
	"timed out",
	"timeout",
	"connection reset",
	"connection refused",
	"temporary failure",
	"could not resolve",
	"couldn't resolve",
	"too many requests",
	"service unavailable",
	"bad gateway",
	"slow down",
	"curl error",
	"network",
}

func isTransientOutput(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, m := range transientMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func (e *PDALExecutor) Execute(ctx context.Context, req *request.FetchRequest) (*pointcloud.PointSet, error) {
	if e.Probe != nil {
		info, err := e.Probe.Check(ctx, req.SourceURL)
		if err != nil {
			return nil, err
		}
		if crs, err := info.CRS(); err == nil && !crs.Equal(req.NativeCRS) {
			monitoring.Logf("fetch %s: source reports %s, catalog says %s", req, crs, req.NativeCRS)
		}
	}

	dir, err := os.MkdirTemp(e.WorkDir, "fetch-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// pdal runs inside the scratch dir, so persisted outputs need absolute
	// paths and existing parents.
	r := *req
	if r.LAZPath, err = prepareOutput(req.LAZPath); err != nil {
		return nil, err
	}
	if r.TIFPath, err = prepareOutput(req.TIFPath); err != nil {
		return nil, err
	}

	out := filepath.Join(dir, "points.csv")
	doc, err := json.Marshal(r.Pipeline(out))
	if err != nil {
		return nil, fmt.Errorf("encode pipeline: %w", err)
	}

	path := e.Path
	if path == "" {
		path = "pdal"
	}
	cmd := exec.CommandContext(ctx, path, "pipeline", "--stdin")
	cmd.Stdin = bytes.NewReader(doc)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// The binary could not be started at all.
			return nil, fmt.Errorf("run %s: %w", path, err)
		}
		err = fmt.Errorf("pdal pipeline: %w: %s", err, lastLine(msg))
		if isTransientOutput(msg) {
			return nil, MarkTransient(err)
		}
		return nil, err
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("pdal produced no output: %w", err)
	}
	defer f.Close()

	ps, err := pointcloud.ReadText(f, req.OutputCRS)
	if err != nil {
		return nil, fmt.Errorf("read pdal output: %w", err)
	}
	return ps, nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func prepareOutput(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("output path %q: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return abs, nil
}
