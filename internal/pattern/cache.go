package pattern

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of compiled patterns kept per Cache.
const DefaultCacheSize = 256

// Cache memoizes compiled patterns. Compiled *regexp.Regexp values are safe
// for concurrent use, so one Cache can serve concurrent scans.
type Cache struct {
	entries *lru.Cache[string, *regexp.Regexp]
}

// NewCache returns a cache holding up to size compiled patterns.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		// lru.New only fails for a non-positive size
		panic(err)
	}
	return &Cache{entries: c}
}

// Detect returns the compiled detect pattern for (source, flags).
func (c *Cache) Detect(source, flags string) (*regexp.Regexp, error) {
	return c.get("detect\x00"+flags+"\x00"+source, func() (*regexp.Regexp, error) {
		return CompileDetect(source, flags)
	})
}

// Validation returns the compiled validation pattern for (prefix, separator).
func (c *Cache) Validation(expectedPrefix, separator string) (*regexp.Regexp, error) {
	return c.get("validate\x00"+expectedPrefix+"\x00"+separator, func() (*regexp.Regexp, error) {
		return CompileValidation(expectedPrefix, separator)
	})
}

// Repair returns the compiled repair skeleton for labels.
func (c *Cache) Repair(labels []string) (*regexp.Regexp, error) {
	return c.get("repair\x00"+strings.Join(labels, "\x00"), func() (*regexp.Regexp, error) {
		return CompileRepair(labels)
	})
}

// Len reports the number of cached patterns.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) get(key string, compile func() (*regexp.Regexp, error)) (*regexp.Regexp, error) {
	if c == nil {
		return compile()
	}
	if re, ok := c.entries.Get(key); ok {
		return re, nil
	}
	re, err := compile()
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, re)
	return re, nil
}
