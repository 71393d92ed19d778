package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusAndMessage(t *testing.T) {
	en := messagesFor("en")
	tests := []struct {
		name       string
		err        error
		wantKind   string
		wantStatus int
		wantMsg    string
	}{
		{"empty", &ValidationError{Reason: ReasonEmpty}, KindValidation, http.StatusBadRequest, en.EmptyQuery},
		{"too long query", &ValidationError{Reason: ReasonTooLong}, KindValidation, http.StatusBadRequest, "query too long"},
		{"invalid", &ValidationError{Reason: ReasonInvalid}, KindValidation, http.StatusBadRequest, "invalid query"},
		{"invalid chars", &ValidationError{Reason: ReasonInvalidChars}, KindValidation, http.StatusBadRequest, "invalid characters"},
		{"no results", ErrNoResults, KindNoResults, http.StatusNotFound, en.NoResults},
		{"wrapped no results", fmt.Errorf("search: %w", ErrNoResults), KindNoResults, http.StatusNotFound, en.NoResults},
		{"video too long", &TooLongError{DurationSeconds: 501, LimitSeconds: 500}, KindTooLong, http.StatusRequestEntityTooLarge, en.VideoTooLong},
		{"search", &UpstreamError{Stage: StageSearch, Err: errors.New("x")}, KindUpstream, http.StatusBadGateway, en.SearchFailed},
		{"metadata", &UpstreamError{Stage: StageMetadata, Err: errors.New("x")}, KindUpstream, http.StatusBadGateway, en.InfoFailed},
		{"stream", &UpstreamError{Stage: StageStream, Err: errors.New("x")}, KindUpstream, http.StatusBadGateway, en.StreamFailed},
		{"transcode", &TranscodeError{Err: errors.New("x")}, KindTranscode, http.StatusInternalServerError, en.Convert},
		{"unknown", errors.New("disk full"), KindInternal, http.StatusInternalServerError, en.Internal},
		{"deadline", fmt.Errorf("metadata: %w", context.DeadlineExceeded), KindInternal, http.StatusGatewayTimeout, en.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorKind(tt.err); got != tt.wantKind {
				t.Errorf("errorKind = %q, want %q", got, tt.wantKind)
			}
			if got := statusFor(tt.err); got != tt.wantStatus {
				t.Errorf("statusFor = %d, want %d", got, tt.wantStatus)
			}
			if got := en.Message(tt.err); got != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestMessagesFor(t *testing.T) {
	if messagesFor("pt").NoResults != "Nenhum vídeo encontrado." {
		t.Error("pt catalog not selected")
	}
	if messagesFor("xx") != messagesFor("en") {
		t.Error("unknown locale should fall back to en")
	}
}

func TestCatalogsComplete(t *testing.T) {
	for locale, m := range catalogs {
		for i, s := range []string{
			m.EmptyQuery, m.TooLong, m.Invalid, m.InvalidChars, m.NoResults, m.VideoTooLong,
			m.SearchFailed, m.InfoFailed, m.StreamFailed, m.Convert, m.Internal, m.NotFound,
		} {
			if s == "" {
				t.Errorf("catalog %q: message %d is empty", locale, i)
			}
		}
	}
}

func TestUpstreamErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &UpstreamError{Stage: StageStream, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("UpstreamError does not unwrap")
	}
}
