package version

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
    defer func(v, c string) { Version, GitCommit = v, c }(Version, GitCommit)

    Version, GitCommit = "1.2.0", "0123456789abcdef"
    assert.Equal(t, "1.2.0 (0123456789ab)", String())

    GitCommit = "abc"
    assert.Equal(t, "1.2.0 (abc)", String())

    GitCommit = ""
    assert.True(t, strings.HasPrefix(String(), "1.2.0"))
}
