package chainspec

import _ "embed"

//go:embed specs/mainnet.json
var mainnetJSON []byte

// Mainnet returns the compiled-in chainspec for Ethereum mainnet,
// letting a caller start verifying headers without fetching and
// parsing a chainspec file first.
func Mainnet() (*ChainSpec, error) {
	return Load(mainnetJSON)
}
