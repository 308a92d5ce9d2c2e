package providers

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cinespot/config"
	"cinespot/models"
)

// IDPlaceholder is replaced by the escaped content identifier in URL templates.
const IDPlaceholder = "{id}"

var (
	ErrInvalidTemplate  = errors.New("provider url template must contain " + IDPlaceholder)
	ErrDuplicateKey     = errors.New("duplicate provider key")
	ErrNoProviders      = errors.New("at least one provider is required")
	ErrUnknownProvider  = errors.New("unknown provider")
	errMissingProviderK = errors.New("provider key is required")
)

// Provider is a third-party embed player reachable through a templated URL.
type Provider struct {
	Key      string
	Label    string
	template string
}

func NewProvider(key, label, template string) (Provider, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Provider{}, errMissingProviderK
	}
	template = strings.TrimSpace(template)
	if !strings.Contains(template, IDPlaceholder) {
		return Provider{}, fmt.Errorf("%s: %w", key, ErrInvalidTemplate)
	}
	if strings.TrimSpace(label) == "" {
		label = key
	}
	return Provider{Key: key, Label: strings.TrimSpace(label), template: template}, nil
}

// URL builds the embed URL for id. It has no side effects.
func (p Provider) URL(id string) string {
	return strings.ReplaceAll(p.template, IDPlaceholder, url.PathEscape(strings.TrimSpace(id)))
}

func (p Provider) Info() models.ProviderInfo {
	return models.ProviderInfo{Key: p.Key, Label: p.Label}
}

// Registry is the ordered provider list. Order is fallback priority.
type Registry struct {
	list  []Provider
	index map[string]int
}

func NewRegistry(list ...Provider) (*Registry, error) {
	if len(list) == 0 {
		return nil, ErrNoProviders
	}
	r := &Registry{
		list:  make([]Provider, 0, len(list)),
		index: make(map[string]int, len(list)),
	}
	for _, p := range list {
		if _, exists := r.index[p.Key]; exists {
			return nil, fmt.Errorf("%s: %w", p.Key, ErrDuplicateKey)
		}
		r.index[p.Key] = len(r.list)
		r.list = append(r.list, p)
	}
	return r, nil
}

// FromSettings builds a registry from configuration entries.
func FromSettings(entries []config.ProviderSettings) (*Registry, error) {
	list := make([]Provider, 0, len(entries))
	for _, e := range entries {
		p, err := NewProvider(e.Key, e.Label, e.URLTemplate)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return NewRegistry(list...)
}

func (r *Registry) Len() int {
	return len(r.list)
}

// At returns the provider at i, wrapping cyclically.
func (r *Registry) At(i int) Provider {
	return r.list[r.wrap(i)]
}

// Index returns the position of key.
func (r *Registry) Index(key string) (int, error) {
	i, ok := r.index[strings.TrimSpace(key)]
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, ErrUnknownProvider)
	}
	return i, nil
}

// Next returns the cyclic successor of i.
func (r *Registry) Next(i int) int {
	return r.wrap(i + 1)
}

func (r *Registry) Infos() []models.ProviderInfo {
	out := make([]models.ProviderInfo, len(r.list))
	for i, p := range r.list {
		out[i] = p.Info()
	}
	return out
}

func (r *Registry) wrap(i int) int {
	n := len(r.list)
	return ((i % n) + n) % n
}
