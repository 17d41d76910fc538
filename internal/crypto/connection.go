package crypto

import (
	"fmt"

	"github.com/rakunlabs/at/internal/dsal/connection"
)

// EncryptConnectionRecord encrypts the sensitive auth fields of a
// connection.Record (api key, access/refresh tokens) before it is
// serialized to storage. It returns a copy with a new Auth; the caller's
// record is not modified. If key is nil, rec is returned unchanged.
func EncryptConnectionRecord(rec connection.Record, key []byte) (connection.Record, error) {
	if key == nil || rec.Auth == nil {
		return rec, nil
	}

	a := *rec.Auth
	var err error
	if a.Key, err = encryptField(a.Key, key); err != nil {
		return rec, fmt.Errorf("encrypt key: %w", err)
	}
	if a.AccessToken, err = encryptField(a.AccessToken, key); err != nil {
		return rec, fmt.Errorf("encrypt access token: %w", err)
	}
	if a.RefreshToken, err = encryptField(a.RefreshToken, key); err != nil {
		return rec, fmt.Errorf("encrypt refresh token: %w", err)
	}
	rec.Auth = &a
	return rec, nil
}

// DecryptConnectionRecord is the inverse of EncryptConnectionRecord.
func DecryptConnectionRecord(rec connection.Record, key []byte) (connection.Record, error) {
	if key == nil || rec.Auth == nil {
		return rec, nil
	}

	a := *rec.Auth
	var err error
	if a.Key, err = Decrypt(a.Key, key); err != nil {
		return rec, fmt.Errorf("decrypt key: %w", err)
	}
	if a.AccessToken, err = Decrypt(a.AccessToken, key); err != nil {
		return rec, fmt.Errorf("decrypt access token: %w", err)
	}
	if a.RefreshToken, err = Decrypt(a.RefreshToken, key); err != nil {
		return rec, fmt.Errorf("decrypt refresh token: %w", err)
	}
	rec.Auth = &a
	return rec, nil
}

func encryptField(v string, key []byte) (string, error) {
	if v == "" {
		return v, nil
	}
	return Encrypt(v, key)
}
