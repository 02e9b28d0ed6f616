// Package channelname derives the private pub/sub channel names.
//
// A name is Prefix, the kind, the scope tag and a truncated HMAC of the
// descriptor. Subject IDs are expected to be UUIDs: the ID itself never
// appears in a name, but a very short ID can still occur by chance inside
// the kind, the scope tag or the hex digest.
package channelname

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/hkdf"

	"farmstand-realtime/internal/realtime"
)

const (
	// Prefix starts every generated name.
	Prefix = "sec"

	// digestBytes is how much of the HMAC ends up in the name.
	digestBytes = 16

	hkdfInfoPrefix = "farmstand-realtime/channel-names/"
	defaultEpoch   = "1"

	// DefaultCacheSize bounds the memoised names. Customer channels carry a
	// user ID, so the descriptor space grows with the user base.
	DefaultCacheSize = 4096
)

// Config is the explicit input of the generator.
type Config struct {
	// Secret is the server-held key. Empty means not configured.
	Secret string
	// Epoch selects the derived key. Changing it rotates every name.
	Epoch string
	// CacheSize caps the memoised names. Zero means DefaultCacheSize.
	CacheSize int
}

// Generator derives deterministic, non-guessable channel names.
type Generator interface {
	Generate(kind realtime.Kind, scope realtime.Scope, subjectID string) (string, error)
	GenerateFor(d realtime.ChannelDescriptor) (string, error)
	Validate(name string, kind realtime.Kind, scope realtime.Scope, subjectID string) bool
	// Ready returns the configuration error Generate would return, if any.
	Ready() error
}

type implGenerator struct {
	key   []byte
	cache *lru.Cache[realtime.ChannelDescriptor, string]
}

// New builds a Generator. An empty secret is accepted here and reported by
// Generate and Ready, so callers decide when it is fatal.
func New(cfg Config) Generator {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[realtime.ChannelDescriptor, string](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic("channelname: lru: " + err.Error())
	}

	g := &implGenerator{cache: cache}
	if cfg.Secret != "" {
		epoch := cfg.Epoch
		if epoch == "" {
			epoch = defaultEpoch
		}
		g.key = deriveKey(cfg.Secret, epoch)
	}
	return g
}

func deriveKey(secret, epoch string) []byte {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfoPrefix+epoch))
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails past 255*HashLen bytes of output.
		panic("channelname: hkdf: " + err.Error())
	}
	return key
}

func (g *implGenerator) Ready() error {
	if len(g.key) == 0 {
		return realtime.ErrSecretNotConfigured
	}
	return nil
}

func (g *implGenerator) Generate(kind realtime.Kind, scope realtime.Scope, subjectID string) (string, error) {
	return g.GenerateFor(realtime.ChannelDescriptor{Kind: kind, Scope: scope, SubjectID: subjectID})
}

func (g *implGenerator) GenerateFor(d realtime.ChannelDescriptor) (string, error) {
	if err := g.Ready(); err != nil {
		return "", err
	}
	if err := d.Validate(); err != nil {
		return "", err
	}
	d = d.Normalize()

	if name, ok := g.cache.Get(d); ok {
		return name, nil
	}

	name := g.build(d)
	g.cache.Add(d, name)
	return name, nil
}

func (g *implGenerator) build(d realtime.ChannelDescriptor) string {
	mac := hmac.New(sha256.New, g.key)
	mac.Write([]byte(string(d.Kind) + "|" + string(d.Scope) + "|" + d.SubjectID))
	sum := mac.Sum(nil)

	var b strings.Builder
	b.Grow(len(Prefix) + len(d.Kind) + 8 + 2*digestBytes)
	b.WriteString(Prefix)
	b.WriteByte('-')
	b.WriteString(string(d.Kind))
	b.WriteByte('-')
	b.WriteString(d.Scope.Tag())
	b.WriteByte('-')
	b.WriteString(hex.EncodeToString(sum[:digestBytes]))
	return b.String()
}

func (g *implGenerator) Validate(name string, kind realtime.Kind, scope realtime.Scope, subjectID string) bool {
	expected, err := g.Generate(kind, scope, subjectID)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(name), []byte(expected)) == 1
}
