package fs

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a.md", want: "a.md"},
		{in: "proj/a.md", want: "proj/a.md"},
		{in: `proj\a.md`, want: "proj/a.md"},
		{in: "proj/../a.md", want: "a.md"},
		{in: "./a.md", want: "a.md"},
		{in: "", wantErr: true},
		{in: ".", wantErr: true},
		{in: "../a.md", wantErr: true},
		{in: "proj/../../a.md", wantErr: true},
		{in: "/etc/passwd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Clean(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutsideRoot)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootedFs(t *testing.T) {
	base := afero.NewMemMapFs()
	rfs := NewRootedFs(base, "/out")

	require.NoError(t, rfs.MkdirAll("proj", 0o755))
	require.NoError(t, afero.WriteFile(rfs, "proj/a.md", []byte("hi"), 0o644))

	data, err := afero.ReadFile(base, filepath.Join("/out", "proj", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))

	_, err = rfs.Create("../escape.md")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	assert.Equal(t, "/out", rfs.Root())
}
