package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"abc"}`))

	var body loginBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be at least 6", details["password"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"secret","admin":true}`))

	var body loginBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestParsePageParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/products?page=3&limit=10", nil)
	params, err := ParsePageParams(req)
	require.NoError(t, err)
	assert.Equal(t, pagination.PageParams{Page: 3, Limit: 10}, params)

	req = httptest.NewRequest(http.MethodGet, "/api/products", nil)
	params, err = ParsePageParams(req)
	require.NoError(t, err)
	assert.Equal(t, pagination.PageParams{Page: 1, Limit: pagination.DefaultLimit}, params)

	req = httptest.NewRequest(http.MethodGet, "/api/products?limit=500", nil)
	_, err = ParsePageParams(req)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodGet, "/api/products?page=two", nil)
	_, err = ParsePageParams(req)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestParseCursorParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/orders?cursor=abc&limit=5", nil)
	params, err := ParseCursorParams(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", params.Cursor)
	assert.Equal(t, 5, params.Limit)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abc  ", 0))
	assert.Equal(t, "ab", SanitizeString("abcdef", 2))
}

func TestSanitizeStringCutsOnRuneBoundary(t *testing.T) {
	got := SanitizeString("çantë shpine", 2)
	assert.Equal(t, "ça", got)
	assert.True(t, utf8.ValidString(got))

	got = SanitizeString("日本語のテキスト", 3)
	assert.Equal(t, "日本語", got)

	assert.Equal(t, "watch", SanitizeString("wa\x00tch\xff", 0))
	assert.Equal(t, "a", SanitizeString("a b", 2))
}
