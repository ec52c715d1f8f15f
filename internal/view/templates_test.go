package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/navigation"
	"github.com/odyssey-erp/odyssey-console/internal/session"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
	for _, page := range []string{"pages/signin.html", "pages/dashboard.html", "pages/section.html", "pages/unauthorized.html"} {
		assert.Contains(t, engine.pages, page)
	}
}

func TestRenderSidebarMarksActiveEntry(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.Render(rr, "pages/section.html", TemplateData{
		Title:       "Orders",
		CurrentPath: "/sales/orders",
		User:        &session.User{ID: 1, Email: "kasir@odyssey.local"},
		Nav: []navigation.Node{
			{Path: "/sales", Label: "Sales", Kind: navigation.KindGroup, Children: []navigation.Node{
				{Path: "/sales/orders", Label: "Orders", Kind: navigation.KindPage},
			}},
		},
	})
	require.NoError(t, err)

	body := rr.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, body, `href="/sales/orders"`)
	assert.Contains(t, body, `aria-current="page"`)
	assert.NotContains(t, body, `href="/sales"`, "groups are labels, not links")
}

func TestRenderUnknownPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/missing.html", TemplateData{}))

	var nilEngine *Engine
	assert.Error(t, nilEngine.Render(httptest.NewRecorder(), "pages/signin.html", TemplateData{}))
}
