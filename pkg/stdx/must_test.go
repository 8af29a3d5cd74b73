package stdx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errTest = errors.New("test error")

func TestMust1(t *testing.T) {
	assert.Equal(t, "test", Must1("test", nil))
	assert.PanicsWithError(t, errTest.Error(), func() { Must1("test", errTest) })
}

func TestPtr(t *testing.T) {
	v := 3
	p := Ptr(v)
	assert.Equal(t, 3, *p)
	*p = 4
	assert.Equal(t, 3, v)
}

func TestNonEmpty(t *testing.T) {
	assert.Nil(t, NonEmpty(""))
	if assert.NotNil(t, NonEmpty("a")) {
		assert.Equal(t, "a", *NonEmpty("a"))
	}
}
