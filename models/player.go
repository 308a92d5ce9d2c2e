package models

// PlayerStatus is the visible state of an embed.
type PlayerStatus string

const (
	PlayerLoading PlayerStatus = "loading"
	PlayerReady   PlayerStatus = "ready"
	PlayerErrored PlayerStatus = "errored"
)

// ProviderInfo is the public view of an embed provider.
type ProviderInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// PlayerState is a point-in-time snapshot of a resilient player.
type PlayerState struct {
	SessionID     string         `json:"sessionId,omitempty"`
	Subject       string         `json:"subject"`
	Title         string         `json:"title,omitempty"`
	Status        PlayerStatus   `json:"status"`
	SlowWarning   bool           `json:"slowWarning"`
	Attempt       uint64         `json:"attempt"`
	ProviderIndex int            `json:"providerIndex"`
	Provider      ProviderInfo   `json:"provider"`
	NextProvider  ProviderInfo   `json:"nextProvider"`
	EmbedURL      string         `json:"embedUrl"`
	Providers     []ProviderInfo `json:"providers"`
}
