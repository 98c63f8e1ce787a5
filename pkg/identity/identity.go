package identity

import (
	"os"

	"github.com/skyforge/telemetry-relay/pkg/file"
)

// Identity holds the relay's unique identifier and deployment metadata.
type Identity struct {
	ID   string `json:"relay_id,omitempty"`
	Name string `json:"relay_name,omitempty"`
	Site string `json:"site,omitempty"`
}

// RelayInfoInterface defines methods for managing the relay identity.
type RelayInfoInterface interface {
	LoadRelayInfo() error
	SaveRelayID(relayID string) error
	GetRelayID() string
	GetRelayIdentity() *Identity
}

// RelayInfo manages the relay identity and its backing file.
type RelayInfo struct {
	RelayInfoFile string
	Identity      Identity
	fileOps       file.FileOperations
}

// NewRelayInfo initializes a new RelayInfo instance.
func NewRelayInfo(filePath string, fileOps file.FileOperations) RelayInfoInterface {
	return &RelayInfo{
		RelayInfoFile: filePath,
		fileOps:       fileOps,
		Identity:      Identity{},
	}
}

// LoadRelayInfo reads the relay information from the file and populates the
// Identity field. A missing file leaves the identity empty.
func (r *RelayInfo) LoadRelayInfo() error {
	err := r.fileOps.ReadJsonFile(r.RelayInfoFile, &r.Identity)
	if err != nil {
		if os.IsNotExist(err) {
			r.Identity = Identity{}
			return nil
		}
		return err
	}

	return nil
}

// GetRelayIdentity returns the current relay Identity.
func (r *RelayInfo) GetRelayIdentity() *Identity {
	return &r.Identity
}

// GetRelayID returns the current relay ID.
func (r *RelayInfo) GetRelayID() string {
	return r.Identity.ID
}

// SaveRelayID updates the relay ID and writes it back to the file.
func (r *RelayInfo) SaveRelayID(relayID string) error {
	r.Identity.ID = relayID
	return r.fileOps.WriteJsonFile(r.RelayInfoFile, r.Identity)
}
