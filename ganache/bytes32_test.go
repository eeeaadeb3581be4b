package ganache

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytes32(t *testing.T) {
	s := "0x" + "01" + "00000000000000000000000000000000000000000000000000000000000000"
	b, err := ParseBytes32(s)
	require.NoError(t, err)
	assert.Equal(t, byte(1), b[0])
	assert.Equal(t, s, b.String())

	_, err = ParseBytes32("0x01")
	assert.Error(t, err)
	_, err = ParseBytes32("zz" + s[2:])
	assert.Error(t, err)
}

func TestBytes32JSON(t *testing.T) {
	b := Keccak256([]byte("foo"))
	data, err := json.Marshal(&b)
	require.NoError(t, err)

	var dec Bytes32
	require.NoError(t, json.Unmarshal(data, &dec))
	assert.Equal(t, b, dec)
}

func TestEmptyHashes(t *testing.T) {
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", EmptyCodeHash.String())
	assert.Equal(t, "0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421", EmptyRoot.String())
}

func TestAddress(t *testing.T) {
	addr, err := ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	require.NoError(t, err)
	assert.Equal(t, "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", addr.String())
	assert.False(t, addr.IsZero())

	text, err := addr.MarshalText()
	require.NoError(t, err)
	var dec Address
	require.NoError(t, dec.UnmarshalText(text))
	assert.Equal(t, addr, dec)

	_, err = ParseAddress("0x1234")
	assert.Error(t, err)
}

func TestCreateContractAddress(t *testing.T) {
	// well-known vector: deployer 0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0 nonce 0
	sender := MustParseAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	assert.Equal(t, "0xcd234a471b72ba2f1ccf0a70fcaba648a5eecd8d", CreateContractAddress(sender, 0).String())
	assert.Equal(t, "0x343c43a37d37dff08ae8c4a11544c718abb4fcf8", CreateContractAddress(sender, 1).String())
}
