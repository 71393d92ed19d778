package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error kinds, also reported in the "kind" field of JSON error bodies.
const (
	KindValidation = "validation"
	KindNoResults  = "no_results"
	KindTooLong    = "too_long"
	KindUpstream   = "upstream"
	KindTranscode  = "transcode"
	KindInternal   = "internal"
)

// Validation reasons. The user-facing text comes from the message catalog.
const (
	ReasonEmpty        = "empty"
	ReasonTooLong      = "too_long"
	ReasonInvalid      = "invalid"
	ReasonInvalidChars = "invalid_chars"
)

// Upstream stages.
const (
	StageSearch   = "search"
	StageMetadata = "metadata"
	StageStream   = "stream"
)

// ErrNoResults means the search provider returned an empty list.
var ErrNoResults = errors.New("no search results")

// ValidationError rejects a query before any external call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

// TooLongError means the video exceeds the configured duration limit.
type TooLongError struct {
	DurationSeconds int
	LimitSeconds    int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("video too long: %ds > %ds", e.DurationSeconds, e.LimitSeconds)
}

// UpstreamError wraps a failure of an external provider (search, metadata or stream).
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// TranscodeError wraps an ffmpeg failure.
type TranscodeError struct {
	Err error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode failed: %v", e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// errorKind classifies err for logging and status mapping.
func errorKind(err error) string {
	var (
		ve *ValidationError
		te *TooLongError
		ue *UpstreamError
		ce *TranscodeError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrNoResults):
		return KindNoResults
	case errors.As(err, &te):
		return KindTooLong
	case errors.As(err, &ue):
		return KindUpstream
	case errors.As(err, &ce):
		return KindTranscode
	default:
		return KindInternal
	}
}

// statusFor maps an error kind to the HTTP status returned to the client.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch errorKind(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNoResults:
		return http.StatusNotFound
	case KindTooLong:
		return http.StatusRequestEntityTooLarge
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// --- Message catalog ---

// Messages holds every user-visible error string for one locale.
type Messages struct {
	EmptyQuery   string
	TooLong      string
	Invalid      string
	InvalidChars string
	NoResults    string
	VideoTooLong string
	SearchFailed string
	InfoFailed   string
	StreamFailed string
	Convert      string
	Internal     string
	NotFound     string
}

var catalogs = map[string]Messages{
	"en": {
		EmptyQuery:   "query must not be empty or only spaces",
		TooLong:      "query too long",
		Invalid:      "invalid query",
		InvalidChars: "invalid characters",
		NoResults:    "no video found",
		VideoTooLong: "video is too long to convert",
		SearchFailed: "error searching for video",
		InfoFailed:   "error getting video information",
		StreamFailed: "error downloading audio",
		Convert:      "error during download or conversion",
		Internal:     "internal server error",
		NotFound:     "artifact not found",
	},
	"pt": {
		EmptyQuery:   "A consulta não pode estar vazia ou apenas com espaços.",
		TooLong:      "Consulta muito longa",
		Invalid:      "Consulta inválida",
		InvalidChars: "Caracteres inválidos na consulta",
		NoResults:    "Nenhum vídeo encontrado.",
		VideoTooLong: "O vídeo é muito longo para ser convertido.",
		SearchFailed: "Erro ao buscar vídeo.",
		InfoFailed:   "Erro ao obter informações do vídeo.",
		StreamFailed: "Erro durante o download.",
		Convert:      "Erro durante o download ou conversão.",
		Internal:     "Erro interno do servidor.",
		NotFound:     "Arquivo não encontrado.",
	},
}

// messagesFor returns the catalog for locale, falling back to English.
func messagesFor(locale string) Messages {
	if m, ok := catalogs[locale]; ok {
		return m
	}
	return catalogs["en"]
}

// Message renders err as the user-facing string of this catalog.
func (m Messages) Message(err error) string {
	var (
		ve *ValidationError
		ue *UpstreamError
	)
	if errors.As(err, &ve) {
		switch ve.Reason {
		case ReasonEmpty:
			return m.EmptyQuery
		case ReasonTooLong:
			return m.TooLong
		case ReasonInvalid:
			return m.Invalid
		default:
			return m.InvalidChars
		}
	}
	switch errorKind(err) {
	case KindNoResults:
		return m.NoResults
	case KindTooLong:
		return m.VideoTooLong
	case KindUpstream:
		errors.As(err, &ue)
		switch ue.Stage {
		case StageSearch:
			return m.SearchFailed
		case StageMetadata:
			return m.InfoFailed
		default:
			return m.StreamFailed
		}
	case KindTranscode:
		return m.Convert
	default:
		return m.Internal
	}
}
