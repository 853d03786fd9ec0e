package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a:9200", "http://b:9200"}, SplitList(" http://a:9200, ,http://b:9200 ", ","))
	assert.Nil(t, SplitList("", ","))
	assert.Nil(t, SplitList(" , ", ","))
}
