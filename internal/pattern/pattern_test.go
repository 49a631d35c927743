package pattern

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileValidation_EscapesMetacharacters(t *testing.T) {
	tests := []struct {
		prefix, sep string
		text        string
		want        bool
	}{
		{"Fig.", ":", "Fig. 1: plot", true},
		{"Fig.", ":", "Fig.12: plot", true},
		{"Fig.", ":", "FigX 1: plot", false},
		{"Fig.", "|", "Fig. 1| plot", true},
		{"Fig.", "|", "Fig. 1 plot", false},
		{"Fig.", "|", "anything", false},
		{"(a)+", "*", "(a)+ 2* x", true},
		{"(a)+", "*", "aa 2 x", false},
		{"Fig.", ":", "see Fig. 1: plot", false},
	}
	for _, tt := range tests {
		re, err := CompileValidation(tt.prefix, tt.sep)
		require.NoError(t, err)
		assert.Equal(t, tt.want, re.MatchString(tt.text), "prefix=%q sep=%q text=%q", tt.prefix, tt.sep, tt.text)
	}
}

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, `Fig\.`, EscapeLiteral("Fig."))
	assert.Equal(t, `\|`, EscapeLiteral("|"))
	assert.Equal(t, "그림", EscapeLiteral("그림"))
}

func TestDetectSource_Flags(t *testing.T) {
	tests := []struct {
		flags   string
		want    string
		wantErr bool
	}{
		{"", "^fig", false},
		{"i", "(?i)^fig", false},
		{"gi", "(?i)^fig", false},
		{"imsu", "(?ims)^fig", false},
		{"ii", "(?i)^fig", false},
		{"x", "", true},
	}
	for _, tt := range tests {
		got, err := DetectSource("^fig", tt.flags)
		if tt.wantErr {
			assert.Error(t, err, "flags %q", tt.flags)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCompileDetect_Errors(t *testing.T) {
	_, err := CompileDetect("", "i")
	assert.Error(t, err)
	_, err = CompileDetect("^(fig", "")
	assert.Error(t, err)
	re, err := CompileDetect("^fig", "i")
	require.NoError(t, err)
	assert.True(t, re.MatchString("FIGURE 2"))
}

func TestCompileRepair_LongestLabelFirst(t *testing.T) {
	re, err := CompileRepair([]string{"Fig", "Figure", "그림"})
	require.NoError(t, err)
	m := re.FindStringSubmatch("figure 3: a\nsecond line")
	require.NotNil(t, m)
	assert.Equal(t, "figure", m[1])
	assert.Equal(t, "3", m[3])
	assert.Equal(t, "a\nsecond line", m[4])

	_, err = CompileRepair(nil)
	assert.Error(t, err)
}

func TestCache_ReusesCompiledPatterns(t *testing.T) {
	c := NewCache(8)
	a, err := c.Validation("Fig.", ":")
	require.NoError(t, err)
	b, err := c.Validation("Fig.", ":")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = c.Detect("^(", "")
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len(), "failed compiles are not cached")
}

func TestCache_ConcurrentUse(t *testing.T) {
	c := NewCache(4)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			re, err := c.Repair([]string{"Figure", "Fig"})
			if err == nil {
				re.MatchString("Figure 1")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}
