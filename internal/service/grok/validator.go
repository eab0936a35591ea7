package grok

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"h1nted/internal/config"
	"h1nted/internal/domain"
	"h1nted/internal/domain/models/llm"
	"h1nted/internal/domain/services"
)

// Branch names reported in x-branch and stored as the chat row type
const (
	BranchChat      = "chat"
	BranchImage     = "image"
	BranchCDRs      = "cdrs"
	BranchProfiling = "profiling"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Image is a validated attachment, still base64 encoded
type Image struct {
	MIME string
	Data string
}

// DataURL renders the image for the upstream image_url part
func (i Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + i.Data
}

// Validated is a request that passed every check and will reach assembly
type Validated struct {
	Mode      llm.Mode
	Branch    string
	Profiling bool
	Prompt    string
	Language  string
	Images    []Image
	SavedIDs  []string
}

// Validator applies the request rules in a fixed order so the first failing
// rule decides the error code. Nothing here talks to the network.
type Validator struct {
	maxImages       int
	maxImageBytes   int64
	defaultLanguage string
}

func NewValidator(maxImages int, maxImageBytes int64, defaultLanguage string) *Validator {
	return &Validator{
		maxImages:       maxImages,
		maxImageBytes:   maxImageBytes,
		defaultLanguage: defaultLanguage,
	}
}

// Validate checks, in order: payload shape, mode conflicts, an empty request,
// CDRs id count, image count, image size and image type.
func (v *Validator) Validate(req *services.GrokRequest) (*Validated, error) {
	req.ProfileID = strings.TrimSpace(req.ProfileID)
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))

	if err := validation.ValidateStruct(req,
		validation.Field(&req.ProfileID, validation.Required.Error("profileId is required")),
		validation.Field(&req.Mode, validation.In(string(llm.ModeChat), string(llm.ModeImage), string(llm.ModeCDRs)).
			Error("mode must be chat, image or cdrs")),
	); err != nil {
		apiErr := domain.Invalid("invalid request payload")
		var fieldErrs validation.Errors
		if errors.As(err, &fieldErrs) {
			apiErr.WithDetail("fields", fieldErrs)
		}
		return nil, apiErr
	}

	mode, _ := llm.ParseMode(req.Mode)
	prompt := strings.TrimSpace(req.Prompt)

	raw := make([]string, 0, len(req.Images)+1)
	for _, img := range req.Images {
		if s := strings.TrimSpace(img); s != "" {
			raw = append(raw, s)
		}
	}
	if s := strings.TrimSpace(req.ImageBase64); s != "" {
		raw = append(raw, s)
	}

	savedIDs := dedupe(req.SavedMessageIDs)
	if mode == llm.ModeImage && len(savedIDs) > 0 {
		return nil, domain.NewAPIError(http.StatusBadRequest, domain.CodeModeConflict,
			"image mode cannot include saved reports")
	}
	if mode == llm.ModeCDRs && req.Profiling {
		return nil, domain.NewAPIError(http.StatusBadRequest, domain.CodeModeConflict,
			"cdrs mode cannot be combined with profiling")
	}

	// after the conflict checks: {mode: image, savedMessageIds} is MODE_CONFLICT
	if prompt == "" && len(raw) == 0 && !req.Profiling && mode != llm.ModeCDRs {
		return nil, domain.Invalid("nothing to send: provide a prompt or an image")
	}

	if mode == llm.ModeCDRs && (len(savedIDs) < config.MinCDRsReports || len(savedIDs) > config.MaxCDRsReports) {
		return nil, domain.NewAPIError(http.StatusBadRequest, domain.CodeCDRsMinItemsNotMet,
			fmt.Sprintf("cdrs requires %d to %d saved reports", config.MinCDRsReports, config.MaxCDRsReports)).
			WithDetail("received", len(savedIDs))
	}

	if len(raw) > v.maxImages {
		return nil, domain.NewAPIError(http.StatusRequestEntityTooLarge, domain.CodeImageCountExceeded,
			fmt.Sprintf("at most %d images per request", v.maxImages)).
			WithDetail("received", len(raw))
	}

	parsed := make([]dataURL, len(raw))
	for i, s := range raw {
		parsed[i] = parseDataURL(s)
		if size := decodedSize(parsed[i].data); size > v.maxImageBytes {
			return nil, domain.NewAPIError(http.StatusRequestEntityTooLarge, domain.CodePayloadTooLarge,
				fmt.Sprintf("image %d exceeds %d bytes", i+1, v.maxImageBytes)).
				WithDetail("index", i).
				WithDetail("bytes", size)
		}
	}

	images := make([]Image, len(parsed))
	for i, p := range parsed {
		mime, err := p.mediaType()
		if err != nil {
			return nil, domain.Invalid(fmt.Sprintf("image %d is not valid base64", i+1)).WithDetail("index", i)
		}
		if !allowedImageTypes[mime] {
			return nil, domain.NewAPIError(http.StatusUnsupportedMediaType, domain.CodeUnsupportedMediaType,
				fmt.Sprintf("image %d has unsupported type %s", i+1, mime)).
				WithDetail("index", i)
		}
		images[i] = Image{MIME: mime, Data: p.data}
	}

	branch := string(mode)
	if req.Profiling {
		branch = BranchProfiling
	}

	language := strings.TrimSpace(req.UserLanguage)
	if language == "" {
		language = v.defaultLanguage
	}

	return &Validated{
		Mode:      mode,
		Branch:    branch,
		Profiling: req.Profiling,
		Prompt:    prompt,
		Language:  language,
		Images:    images,
		SavedIDs:  savedIDs,
	}, nil
}

// dedupe drops blanks and repeated ids, keeping first occurrence order
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

type dataURL struct {
	declared string // media type from a data: URL, lowercased
	data     string // base64 payload
}

// parseDataURL accepts "data:<mime>;base64,<data>" or bare base64
func parseDataURL(s string) dataURL {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return dataURL{data: s}
	}
	meta, data, found := strings.Cut(rest, ",")
	if !found {
		return dataURL{data: s}
	}
	mime, _, _ := strings.Cut(meta, ";")
	return dataURL{declared: strings.ToLower(strings.TrimSpace(mime)), data: data}
}

// mediaType returns the declared type, or sniffs the decoded bytes
func (d dataURL) mediaType() (string, error) {
	decoded, err := decodeBase64(d.data)
	if err != nil {
		return "", err
	}
	if d.declared != "" {
		return d.declared, nil
	}
	mime, _, _ := strings.Cut(http.DetectContentType(decoded), ";")
	return mime, nil
}

func decodeBase64(s string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// decodedSize computes the decoded length from the base64 length without
// decoding, so oversized images are refused before any allocation.
func decodedSize(s string) int64 {
	n := int64(len(s))
	pad := int64(len(s) - len(strings.TrimRight(s, "=")))
	return n*3/4 - pad
}
