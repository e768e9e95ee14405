package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
)

const (
	flagUserPresent  = 0x01
	flagUserVerified = 0x04
	flagAttested     = 0x40
)

// softAuthenticator is an in-process ES256 platform authenticator.
type softAuthenticator struct {
	t            *testing.T
	rpID         string
	origin       string
	key          *ecdsa.PrivateKey
	credentialID []byte
	signCount    uint32
}

func newSoftAuthenticator(t *testing.T, rpID, origin string) *softAuthenticator {
	t.Helper()
	key, errKey := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if errKey != nil {
		t.Fatalf("generate key: %v", errKey)
	}
	return &softAuthenticator{
		t:            t,
		rpID:         rpID,
		origin:       origin,
		key:          key,
		credentialID: []byte("soft-credential-0001"),
	}
}

func b64(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func (a *softAuthenticator) clientData(kind, challenge string) []byte {
	data, errMarshal := json.Marshal(map[string]any{
		"type":      kind,
		"challenge": challenge,
		"origin":    a.origin,
	})
	if errMarshal != nil {
		a.t.Fatalf("client data: %v", errMarshal)
	}
	return data
}

func (a *softAuthenticator) authData(flags byte, attested []byte) []byte {
	rpHash := sha256.Sum256([]byte(a.rpID))
	out := append([]byte{}, rpHash[:]...)
	out = append(out, flags)
	out = binary.BigEndian.AppendUint32(out, a.signCount)
	return append(out, attested...)
}

func (a *softAuthenticator) coseKey() []byte {
	x := a.key.PublicKey.X.FillBytes(make([]byte, 32))
	y := a.key.PublicKey.Y.FillBytes(make([]byte, 32))
	// kty EC2, alg ES256, crv P-256.
	key, errMarshal := webauthncbor.Marshal(map[int]any{1: 2, 3: -7, -1: 1, -2: x, -3: y})
	if errMarshal != nil {
		a.t.Fatalf("cose key: %v", errMarshal)
	}
	return key
}

// attest answers a creation challenge with a "none" attestation.
func (a *softAuthenticator) attest(challenge string) []byte {
	attested := make([]byte, 16) // zero AAGUID
	attested = binary.BigEndian.AppendUint16(attested, uint16(len(a.credentialID)))
	attested = append(attested, a.credentialID...)
	attested = append(attested, a.coseKey()...)

	object, errMarshal := webauthncbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": a.authData(flagUserPresent|flagUserVerified|flagAttested, attested),
	})
	if errMarshal != nil {
		a.t.Fatalf("attestation object: %v", errMarshal)
	}
	return a.response(map[string]any{
		"clientDataJSON":    b64(a.clientData("webauthn.create", challenge)),
		"attestationObject": b64(object),
	})
}

// assert signs a request challenge, advancing the sign counter.
func (a *softAuthenticator) assert(challenge string, userHandle []byte) []byte {
	a.signCount++
	authData := a.authData(flagUserPresent|flagUserVerified, nil)
	clientData := a.clientData("webauthn.get", challenge)
	clientHash := sha256.Sum256(clientData)
	digest := sha256.Sum256(append(append([]byte{}, authData...), clientHash[:]...))
	signature, errSign := ecdsa.SignASN1(rand.Reader, a.key, digest[:])
	if errSign != nil {
		a.t.Fatalf("sign: %v", errSign)
	}
	return a.response(map[string]any{
		"clientDataJSON":    b64(clientData),
		"authenticatorData": b64(authData),
		"signature":         b64(signature),
		"userHandle":        b64(userHandle),
	})
}

func (a *softAuthenticator) response(inner map[string]any) []byte {
	body, errMarshal := json.Marshal(map[string]any{
		"id":       b64(a.credentialID),
		"rawId":    b64(a.credentialID),
		"type":     "public-key",
		"response": inner,
	})
	if errMarshal != nil {
		a.t.Fatalf("credential json: %v", errMarshal)
	}
	return body
}
