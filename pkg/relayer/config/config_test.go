package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
database_url = "postgres://localhost/relayer"
keystore_dir = "/var/lib/relayer/keys"
max_retries = 12

[[chains]]
chain_id = "chain-a"
type = "tendermint"
rpc_addr = "tcp://127.0.0.1:26657"

[[chains]]
chain_id = "chain-b"
type = "host"
rpc_addr = "https://rpc.example.org"
contract_address = "0x0000000000000000000000000000000000dEaD"

[[channels]]
source_chain = "chain-a"
source_port = "transfer"
source_channel = "channel-0"
dest_chain = "chain-b"
dest_port = "transfer"
dest_channel = "channel-1"
ordered = false
window = 10
`

func TestLoadParsesChainsAndChannels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relayer.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/relayer", cfg.DatabaseURL)
	require.Equal(t, 12, cfg.MaxRetries)
	require.Len(t, cfg.Chains, 2)
	require.Equal(t, "0x0000000000000000000000000000000000dEaD", cfg.Chains[1].Contract)
	require.Len(t, cfg.Channels, 1)
	require.Equal(t, 10, cfg.Channels[0].Window)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.Error(t, err)
}
