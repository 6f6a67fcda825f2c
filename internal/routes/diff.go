package routes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"pixeldiff/internal/codec"
	"pixeldiff/internal/diff"
	diffimage "pixeldiff/internal/diff/image"
	"pixeldiff/internal/myhttp"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/xerrors"
)

type DiffResponse struct {
	DiffData        string  `json:"diffData"`
	DiffAmount      float64 `json:"diffAmount"`
	Identical       bool    `json:"identical"`
	DifferingPixels int     `json:"differingPixels"`
}

type DiffOptions struct {
	// Mode and Format apply when the request leaves them empty.
	Mode      string
	Format    string
	Highlight string
	Workers   int
	// MaxMemory is passed to ParseMultipartForm, 32MiB when zero.
	MaxMemory int64
	// MaxPixels rejects larger inputs with 400, codec.DefaultMaxPixels when zero.
	MaxPixels int64
}

// Diff serves POST /diff. results counts finished comparisons by outcome.
func Diff(options DiffOptions, results metric.Int64Counter) http.HandlerFunc {
	maxMemory := options.MaxMemory
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}

	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		if err := r.ParseMultipartForm(maxMemory); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		baselineName, baselineData, err := readFormFile(r, "baseline")
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		targetName, targetData, err := readFormFile(r, "target")
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		job, err := newJob(r, options)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		output, err := job.Run(r.Context(), baselineName, baselineData, targetName, targetData)
		if err != nil {
			var decodeError *codec.DecodeError
			switch {
			case errors.As(err, &decodeError):
				logger.Info(fmt.Sprintf("rejected input: %s", err))
				http.Error(w, decodeError.Error(), http.StatusBadRequest)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				logger.Debug(fmt.Sprintf("abandoned diff: %s", err))
			default:
				logger.Error(fmt.Sprintf("failed to diff: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
			return
		}

		outcome := diffimage.Different
		if output.Identical {
			outcome = diffimage.Identical
		}
		results.Add(r.Context(), 1, metric.WithAttributes(attribute.Key("outcome").String(outcome.String())))

		if r.FormValue("output") == "image" {
			w.Header().Set("Content-Type", output.ContentType)
			w.Header().Set("Content-Length", strconv.Itoa(len(output.Data)))
			w.Header().Set("X-Diff-Identical", strconv.FormatBool(output.Identical))
			w.Header().Set("X-Diff-Amount", strconv.FormatFloat(output.DiffAmount, 'f', -1, 64))
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write(output.Data); err != nil {
				logger.Debug(fmt.Sprintf("failed to write response: %s", err))
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(DiffResponse{
			DiffData:        base64.StdEncoding.EncodeToString(output.Data),
			DiffAmount:      output.DiffAmount,
			Identical:       output.Identical,
			DifferingPixels: output.DifferingPixels,
		}); err != nil {
			logger.Error("failed to encode response", "error", err)
		}
	}
}

func newJob(r *http.Request, options DiffOptions) (*diff.Job, error) {
	mode := r.FormValue("mode")
	if mode == "" {
		mode = options.Mode
	}
	format := r.FormValue("format")
	if format == "" {
		format = options.Format
	}
	highlightValue := r.FormValue("highlight")
	if highlightValue == "" {
		highlightValue = options.Highlight
	}

	highlight, err := diff.ParseHighlight(highlightValue)
	if err != nil {
		return nil, err
	}
	config, err := diff.Config(mode, highlight, options.Workers)
	if err != nil {
		return nil, err
	}

	quality := 0
	if v := r.FormValue("quality"); v != "" {
		if quality, err = strconv.Atoi(v); err != nil {
			return nil, xerrors.Errorf("invalid quality %q: %w", v, err)
		}
	}

	return &diff.Job{
		Engine:    diffimage.NewEngine(config),
		Format:    format,
		Quality:   quality,
		MaxPixels: options.MaxPixels,
	}, nil
}

func readFormFile(r *http.Request, key string) (string, []byte, error) {
	file, header, err := r.FormFile(key)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}
