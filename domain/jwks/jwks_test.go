package jwks

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rsaJWK(t *testing.T, kid string) (JWK, *rsa.PublicKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub := &key.PublicKey
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}, pub
}

func TestParseSet(t *testing.T) {
	doc := []byte(`{"keys":[{"kty":"RSA","kid":"a","use":"sig","n":"abc","e":"AQAB"},{"kty":"EC","kid":"b","crv":"P-256","x":"x","y":"y"}]}`)

	set, err := ParseSet(doc)
	require.NoError(t, err)
	require.Len(t, set.Keys, 2)
	assert.Equal(t, "RSA", set.Keys[0].Kty)
	assert.Equal(t, "P-256", set.Keys[1].Crv)

	_, err = ParseSet([]byte("not json"))
	assert.Error(t, err)
}

func TestSetLookup(t *testing.T) {
	set := &Set{Keys: []JWK{
		{Kty: "RSA", Kid: "sig-key", Use: "sig"},
		{Kty: "RSA", Kid: "enc-key", Use: "enc"},
		{Kty: "RSA", Kid: "no-use"},
	}}

	t.Run("finds signing key", func(t *testing.T) {
		key, ok := set.Lookup("sig-key")
		require.True(t, ok)
		assert.Equal(t, "sig-key", key.Kid)
	})

	t.Run("skips non-signing use", func(t *testing.T) {
		_, ok := set.Lookup("enc-key")
		assert.False(t, ok)
	})

	t.Run("accepts absent use", func(t *testing.T) {
		_, ok := set.Lookup("no-use")
		assert.True(t, ok)
	})

	t.Run("unknown kid", func(t *testing.T) {
		_, ok := set.Lookup("missing")
		assert.False(t, ok)
	})
}

func TestJWKPublicKey_RSA(t *testing.T) {
	jwk, want := rsaJWK(t, "k1")

	got, err := jwk.PublicKey()
	require.NoError(t, err)

	rsaKey, ok := got.(*rsa.PublicKey)
	require.True(t, ok)
	assert.Zero(t, rsaKey.N.Cmp(want.N))
	assert.Equal(t, want.E, rsaKey.E)
}

func TestJWKPublicKey_EC(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	jwk := JWK{
		Kty: "EC",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(key.PublicKey.X.Bytes()),
		Y:   base64.RawURLEncoding.EncodeToString(key.PublicKey.Y.Bytes()),
	}

	got, err := jwk.PublicKey()
	require.NoError(t, err)

	ecKey, ok := got.(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.Zero(t, ecKey.X.Cmp(key.PublicKey.X))
	assert.Zero(t, ecKey.Y.Cmp(key.PublicKey.Y))
}

func TestJWKPublicKey_Unsupported(t *testing.T) {
	_, err := (&JWK{Kty: "OKP", Crv: "Ed25519"}).PublicKey()
	assert.ErrorIs(t, err, ErrUnsupportedKey)

	_, err = (&JWK{Kty: "EC", Crv: "secp256k1"}).PublicKey()
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}
