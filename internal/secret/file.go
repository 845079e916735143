package secret

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	cc "github.com/and161185/itemsync/internal/crypto/clientcrypto"
)

const (
	keyFileName   = "vault.key"
	vaultFileName = "vault.bin"
	vaultPurpose  = "itemsync/secret-vault/v1"
)

var vaultAAD = []byte(vaultPurpose)

// File is a Store kept in an encrypted file.
//
// The vault key lives next to the vault. With a passphrase the key file holds
// salt||wrapped(master); without one it holds the raw master key (mode 0600).
type File struct {
	mu  sync.Mutex
	dir string
	key []byte
}

// OpenFile opens (or initializes) the vault in dir.
func OpenFile(dir, passphrase string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	master, err := loadOrCreateMaster(filepath.Join(dir, keyFileName), passphrase)
	if err != nil {
		return nil, err
	}
	key, err := cc.DeriveSubkey(master, vaultPurpose)
	if err != nil {
		return nil, err
	}
	return &File{dir: dir, key: key}, nil
}

func loadOrCreateMaster(path, passphrase string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if passphrase == "" {
			if len(raw) != cc.KeyLen {
				return nil, errors.New("vault key file is wrapped; passphrase required")
			}
			return raw, nil
		}
		if len(raw) <= cc.SaltLen {
			return nil, errors.New("vault key file is not passphrase protected")
		}
		kek := cc.DeriveKEK([]byte(passphrase), raw[:cc.SaltLen])
		master, err := cc.UnwrapKey(kek, raw[cc.SaltLen:])
		if err != nil {
			return nil, fmt.Errorf("unlock vault: %w", err)
		}
		return master, nil
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	master, err := cc.Rand(cc.KeyLen)
	if err != nil {
		return nil, err
	}
	out := master
	if passphrase != "" {
		salt, err := cc.Rand(cc.SaltLen)
		if err != nil {
			return nil, err
		}
		wrapped, err := cc.WrapKey(cc.DeriveKEK([]byte(passphrase), salt), master)
		if err != nil {
			return nil, err
		}
		out = append(salt, wrapped...)
	}
	if err := writeAtomic(path, out); err != nil {
		return nil, err
	}
	return master, nil
}

func (f *File) vaultPath() string { return filepath.Join(f.dir, vaultFileName) }

func (f *File) read() (map[string]string, error) {
	blob, err := os.ReadFile(f.vaultPath())
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	pt, err := cc.Open(f.key, vaultAAD, blob)
	if err != nil {
		return nil, fmt.Errorf("decrypt vault: %w", err)
	}
	m := map[string]string{}
	if err := json.Unmarshal(pt, &m); err != nil {
		return nil, fmt.Errorf("decode vault: %w", err)
	}
	return m, nil
}

func (f *File) write(m map[string]string) error {
	pt, err := json.Marshal(m)
	if err != nil {
		return err
	}
	blob, err := cc.Seal(f.key, vaultAAD, pt)
	if err != nil {
		return err
	}
	return writeAtomic(f.vaultPath(), blob)
}

func (f *File) Save(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.read()
	if err != nil {
		return err
	}
	m[key] = value
	return f.write(m)
}

func (f *File) Load(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return f.write(m)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
