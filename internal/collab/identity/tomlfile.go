// Package identity loads (and lazily provisions) the signing keypair from
// a human-editable TOML file on disk.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/signet-ai/signet/internal/collab"
	"github.com/signet-ai/signet/internal/signing"
)

// fileFormat is the on-disk shape of identity.toml.
type fileFormat struct {
	DID        string `toml:"did"`
	PublicKey  string `toml:"public_key"`  // base64
	PrivateKey string `toml:"private_key"` // base64
}

// TomlFile loads the identity from <path>, generating and persisting a
// fresh Ed25519 keypair the first time it is asked for one.
type TomlFile struct {
	path string
}

func NewTomlFile(path string) *TomlFile {
	return &TomlFile{path: path}
}

func (t *TomlFile) Load() (collab.Identity, error) {
	data, err := os.ReadFile(t.path)
	if err == nil {
		var f fileFormat
		if _, err := toml.Decode(string(data), &f); err != nil {
			return collab.Identity{}, fmt.Errorf("decode identity file: %w", err)
		}
		pub, err := base64.StdEncoding.DecodeString(f.PublicKey)
		if err != nil {
			return collab.Identity{}, fmt.Errorf("decode identity public key: %w", err)
		}
		priv, err := base64.StdEncoding.DecodeString(f.PrivateKey)
		if err != nil {
			return collab.Identity{}, fmt.Errorf("decode identity private key: %w", err)
		}
		return collab.Identity{DID: f.DID, PublicKey: pub, PrivateKey: priv}, nil
	}
	if !os.IsNotExist(err) {
		return collab.Identity{}, fmt.Errorf("read identity file: %w", err)
	}
	return t.provision()
}

func (t *TomlFile) provision() (collab.Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return collab.Identity{}, fmt.Errorf("generate signing keypair: %w", err)
	}
	did := signing.DeriveDID(pub)

	f := fileFormat{
		DID:        did,
		PublicKey:  base64.StdEncoding.EncodeToString(pub),
		PrivateKey: base64.StdEncoding.EncodeToString(priv),
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return collab.Identity{}, fmt.Errorf("create identity directory: %w", err)
	}
	out, err := os.OpenFile(t.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return collab.Identity{}, fmt.Errorf("create identity file: %w", err)
	}
	defer out.Close()
	if err := toml.NewEncoder(out).Encode(f); err != nil {
		return collab.Identity{}, fmt.Errorf("write identity file: %w", err)
	}

	return collab.Identity{DID: did, PublicKey: pub, PrivateKey: priv}, nil
}
