package devassert

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/shibgate/internal/domain/sso"
)

func TestNewReader_RequiresUsernameAndEmail(t *testing.T) {
	_, err := NewReader(Config{Email: "dev@example.com"})
	assert.Error(t, err)

	_, err = NewReader(Config{Username: "dev-user"})
	assert.Error(t, err)
}

func TestReader_Read_FixedAssertion(t *testing.T) {
	rd, err := NewReader(Config{Username: "dev-user", Email: "dev@example.com", FirstName: "Dev", LastName: "User"})
	require.NoError(t, err)

	got := rd.Read(sso.DefaultSettings(), httptest.NewRequest("GET", "/", nil))

	assert.True(t, got.Present)
	assert.Equal(t, "dev-user", got.Username)
	assert.Equal(t, "Dev User", got.DisplayName())
}

func TestReader_Read_LoggedOutHeaderDropsAssertion(t *testing.T) {
	rd, err := NewReader(Config{Username: "dev-user", Email: "dev@example.com"})
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(HeaderLoggedOut, "1")

	assert.False(t, rd.Read(sso.DefaultSettings(), r).Present)
}
