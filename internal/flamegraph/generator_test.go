package flamegraph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner - 마지막 인자(출력 경로)에 content를 쓰는 가짜 변환기
type fakeRunner struct {
	content string
	err     error

	args []string
	dir  string
}

func (f *fakeRunner) run(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.args = args
	f.dir = filepath.Dir(args[len(args)-1])
	if f.err != nil {
		return []byte("boom"), f.err
	}
	return nil, os.WriteFile(args[len(args)-1], []byte(f.content), 0o600)
}

func newTestConverter(r *fakeRunner) *Converter {
	c := NewConverter("")
	c.run = r.run
	return c
}

func TestConverterToHTML(t *testing.T) {
	tests := []struct {
		name    string
		include string
		want    []string
	}{
		{name: "no-include", want: []string{"--wall", "--inverted"}},
		{name: "blank-include", include: "  ", want: []string{"--wall", "--inverted"}},
		{name: "with-include", include: "*unicorn*", want: []string{"--wall", "--inverted", "--include", "*unicorn*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{content: "<html>flame</html>"}
			html, err := newTestConverter(r).ToHTML(context.Background(), []byte("jfr"), tt.include)

			require.NoError(t, err)
			assert.Equal(t, "<html>flame</html>", html)
			require.Len(t, r.args, len(tt.want)+2)
			assert.Equal(t, tt.want, r.args[:len(tt.want)])
			assert.Equal(t, "profile.jfr", filepath.Base(r.args[len(tt.want)]))

			_, statErr := os.Stat(r.dir)
			assert.True(t, os.IsNotExist(statErr), "temp dir should be removed")
		})
	}
}

func TestConverterToCollapsed(t *testing.T) {
	r := &fakeRunner{content: "a;b;c 3\n"}
	out, err := newTestConverter(r).ToCollapsed(context.Background(), []byte("jfr"))

	require.NoError(t, err)
	assert.Equal(t, "a;b;c 3\n", out)
	assert.Equal(t, []string{"--wall", "-o", "collapsed"}, r.args[:3])
}

func TestConverterFailureCleansUp(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1")}
	_, err := newTestConverter(r).ToHTML(context.Background(), []byte("jfr"), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	_, statErr := os.Stat(r.dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConverterEmptyInput(t *testing.T) {
	r := &fakeRunner{}
	_, err := newTestConverter(r).ToCollapsed(context.Background(), nil)

	require.Error(t, err)
	assert.Nil(t, r.args, "converter should not run")
}

type stubGenerator struct {
	html      string
	collapsed string
	err       error
}

func (s *stubGenerator) ToHTML(context.Context, []byte, string) (string, error) {
	return s.html, s.err
}

func (s *stubGenerator) ToCollapsed(context.Context, []byte) (string, error) {
	return s.collapsed, s.err
}

func TestFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("primary-ok", func(t *testing.T) {
		f := &Fallback{
			Primary:   &stubGenerator{html: "<html/>", collapsed: "p 1\n"},
			Secondary: &stubGenerator{collapsed: "s 1\n"},
		}
		out, err := f.ToCollapsed(ctx, []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, "p 1\n", out)
	})

	t.Run("primary-fails", func(t *testing.T) {
		f := &Fallback{
			Primary:   &stubGenerator{err: errors.New("not installed")},
			Secondary: &stubGenerator{collapsed: "s 1\n"},
		}
		out, err := f.ToCollapsed(ctx, []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, "s 1\n", out)

		_, err = f.ToHTML(ctx, []byte("x"), "")
		assert.Error(t, err)
	})

	t.Run("no-secondary", func(t *testing.T) {
		f := &Fallback{Primary: &stubGenerator{err: errors.New("not installed")}}
		_, err := f.ToCollapsed(ctx, []byte("x"))
		assert.Error(t, err)
	})
}
