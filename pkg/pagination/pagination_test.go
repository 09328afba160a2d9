package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextFor(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(contextFor(""))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := FromContext(contextFor("limit=50&offset=10"))
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("unexpected params: %+v", p)
	}
}

func TestFromContext_ClampsLimit(t *testing.T) {
	p := FromContext(contextFor("limit=5000"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeValues(t *testing.T) {
	p := FromContext(contextFor("limit=-5&offset=-3"))
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("unexpected params: %+v", p)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	resp := NewResponse(nil, 50, 20, 0)
	if !resp.HasMore {
		t.Error("expected has_more true")
	}
	resp = NewResponse(nil, 15, 20, 0)
	if resp.HasMore {
		t.Error("expected has_more false")
	}
}

func TestParams_NextOffset(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if p.NextOffset() != 60 {
		t.Errorf("expected 60, got %d", p.NextOffset())
	}
	if !p.HasNext(100) {
		t.Error("expected next page at total 100")
	}
	if p.HasNext(60) {
		t.Error("expected no next page at total 60")
	}
}
