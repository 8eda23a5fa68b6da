package server

import (
	"context"
	"mime"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/tierstore/tierstore/internal/catalog"
	tierr "github.com/tierstore/tierstore/internal/errors"
	"github.com/tierstore/tierstore/internal/tier"
	"github.com/tierstore/tierstore/internal/uid"
)

// TierInfo describes one storage tier.
type TierInfo struct {
	Name       string `json:"name" example:"internal-persistent"`
	Base       string `json:"base" doc:"Resolved base location"`
	Available  bool   `json:"available"`
	External   bool   `json:"external"`
	Persistent bool   `json:"persistent"`
}

type TiersOutput struct {
	Body struct {
		Tiers []TierInfo `json:"tiers"`
	}
}

// FileEntry is a catalog entry as returned by the API.
type FileEntry struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	MimeType  string    `json:"mime_type"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TierPath struct {
	Tier string `path:"tier" doc:"Tier name, e.g. internal-persistent"`
}

type FilePath struct {
	Tier string `path:"tier" doc:"Tier name, e.g. internal-persistent"`
	Name string `path:"name" doc:"File name without path separators"`
}

type ListFilesOutput struct {
	Body struct {
		Tier  string      `json:"tier"`
		Files []FileEntry `json:"files"`
	}
}

type CreateFileOutput struct {
	Body struct {
		Tier string `json:"tier"`
		Name string `json:"name"`
	}
}

type WriteFileInput struct {
	FilePath
	RawBody []byte
}

type WriteFileOutput struct {
	Body struct {
		BytesWritten int64 `json:"bytes_written"`
	}
}

type ReadFileOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type CaptureInput struct {
	TierPath
	ContentType string `header:"Content-Type"`
	RawBody     []byte
}

type CaptureOutput struct {
	Body struct {
		Tier         string `json:"tier"`
		Name         string `json:"name"`
		BytesWritten int64  `json:"bytes_written"`
	}
}

// preferredExt picks the conventional extension where the system MIME table
// lists several.
var preferredExt = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"video/mp4":        ".mp4",
	"audio/mpeg":       ".mp3",
	"text/plain":       ".txt",
	"application/json": ".json",
}

// extensionFor returns the file extension for a Content-Type, or ".bin".
func extensionFor(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".bin"
	}
	if ext, ok := preferredExt[mt]; ok {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// rawRequestBody documents an optional binary body. Empty bodies are valid
// writes.
func rawRequestBody() *huma.RequestBody {
	return &huma.RequestBody{
		Required: false,
		Content: map[string]*huma.MediaType{
			"application/octet-stream": {Schema: &huma.Schema{Type: huma.TypeString, Format: "binary"}},
		},
	}
}

func parseTier(name string) (tier.Tier, error) {
	t, err := tier.Parse(name)
	if err != nil {
		return 0, apiError(tierr.ErrInvalidTier.WithMessage("unknown storage tier %q", name))
	}
	return t, nil
}

// apiError converts a tier error into a Huma status error.
func apiError(err error) error {
	return huma.NewError(tierr.HTTPStatusOf(err), err.Error())
}

func (s *Server) registerTiers() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-tiers",
		Method:      http.MethodGet,
		Path:        "/tiers",
		Summary:     "List storage tiers",
		Tags:        []string{"Tiers"},
	}, func(ctx context.Context, input *struct{}) (*TiersOutput, error) {
		out := &TiersOutput{}
		for _, t := range tier.All {
			base, ok := s.manager.Base(t)
			out.Body.Tiers = append(out.Body.Tiers, TierInfo{
				Name:       t.String(),
				Base:       base,
				Available:  ok,
				External:   t.IsExternal(),
				Persistent: t.IsPersistent(),
			})
		}
		return out, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-files",
		Method:      http.MethodGet,
		Path:        "/tiers/{tier}/files",
		Summary:     "List cataloged files of a tier",
		Tags:        []string{"Files"},
	}, func(ctx context.Context, input *TierPath) (*ListFilesOutput, error) {
		t, err := parseTier(input.Tier)
		if err != nil {
			return nil, err
		}
		entries, err := s.manager.List(ctx, t)
		if err != nil {
			return nil, apiError(err)
		}
		out := &ListFilesOutput{}
		out.Body.Tier = t.String()
		out.Body.Files = make([]FileEntry, 0, len(entries))
		for _, e := range entries {
			out.Body.Files = append(out.Body.Files, toFileEntry(e))
		}
		return out, nil
	})
}

func toFileEntry(e catalog.Entry) FileEntry {
	return FileEntry{
		Name:      e.Name,
		Size:      e.Size,
		Checksum:  e.Checksum,
		MimeType:  e.MimeType,
		UpdatedAt: e.UpdatedAt,
	}
}

func (s *Server) registerFiles() {
	maxBody := s.cfg.Server.MaxFileSize

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-file",
		Method:        http.MethodPost,
		Path:          "/tiers/{tier}/files/{name}",
		Summary:       "Create an empty file",
		Description:   "Creates an empty file unless one already exists.",
		Tags:          []string{"Files"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *FilePath) (*CreateFileOutput, error) {
		t, err := parseTier(input.Tier)
		if err != nil {
			return nil, err
		}
		if err := s.manager.Create(ctx, t, input.Name); err != nil {
			return nil, apiError(err)
		}
		out := &CreateFileOutput{}
		out.Body.Tier = t.String()
		out.Body.Name = input.Name
		return out, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:  "write-file",
		Method:       http.MethodPut,
		Path:         "/tiers/{tier}/files/{name}",
		Summary:      "Write a file",
		Description:  "Replaces the whole content of the file with the request body.",
		Tags:         []string{"Files"},
		MaxBodyBytes: maxBody,
		RequestBody:  rawRequestBody(),
	}, func(ctx context.Context, input *WriteFileInput) (*WriteFileOutput, error) {
		t, err := parseTier(input.Tier)
		if err != nil {
			return nil, err
		}
		n, err := s.manager.Write(ctx, t, input.Name, input.RawBody)
		if err != nil {
			return nil, apiError(err)
		}
		out := &WriteFileOutput{}
		out.Body.BytesWritten = n
		return out, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "read-file",
		Method:      http.MethodGet,
		Path:        "/tiers/{tier}/files/{name}",
		Summary:     "Read a file",
		Tags:        []string{"Files"},
	}, func(ctx context.Context, input *FilePath) (*ReadFileOutput, error) {
		t, err := parseTier(input.Tier)
		if err != nil {
			return nil, err
		}
		data, err := s.manager.Read(ctx, t, input.Name)
		if err != nil {
			return nil, apiError(err)
		}
		return &ReadFileOutput{
			ContentType: catalog.DetectMimeType(input.Name, data),
			Body:        data,
		}, nil
	})

	s.router.Head("/tiers/{tier}/files/{name}", func(w http.ResponseWriter, r *http.Request) {
		t, err := tier.Parse(chi.URLParam(r, "tier"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if !s.manager.Exists(r.Context(), t, chi.URLParam(r, "name")) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "capture",
		Method:        http.MethodPost,
		Path:          "/tiers/{tier}/captures",
		Summary:       "Store a capture under a generated name",
		Description:   "Stores the request body under a random UUID name with an extension derived from Content-Type.",
		Tags:          []string{"Files"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  maxBody,
		RequestBody:   rawRequestBody(),
	}, func(ctx context.Context, input *CaptureInput) (*CaptureOutput, error) {
		t, err := parseTier(input.Tier)
		if err != nil {
			return nil, err
		}
		name := uid.New() + extensionFor(input.ContentType)
		n, err := s.manager.Write(ctx, t, name, input.RawBody)
		if err != nil {
			return nil, apiError(err)
		}
		out := &CaptureOutput{}
		out.Body.Tier = t.String()
		out.Body.Name = name
		out.Body.BytesWritten = n
		return out, nil
	})
}
