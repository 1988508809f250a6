package params

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Contracts identifies the on-chain collaborators.
type Contracts struct {
	Exchange common.Address
	Token    common.Address
}

// Chain is the RPC endpoint and signer configuration.
type Chain struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string // hex-encoded, no 0x prefix
}

// API configures the local gateway the browser UI talks to.
type API struct {
	Listen         string
	AllowedOrigins []string
}

type Config struct {
	Contracts Contracts
	Chain     Chain
	API       API
	CachePath string
}

func Default() Config {
	return Config{
		Chain: Chain{
			RPCURL:  "ws://127.0.0.1:8545",
			ChainID: 31337, // local devnet
		},
		API: API{
			Listen:         ":8780",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		CachePath: "data/trades.db",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults. A missing or
// malformed exchange address is fatal here, not at first use.
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if url := os.Getenv("RPC_URL"); url != "" {
		cfg.Chain.RPCURL = url
	}
	if id := os.Getenv("CHAIN_ID"); id != "" {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHAIN_ID %q: %w", id, err)
		}
		cfg.Chain.ChainID = n
	}
	cfg.Chain.PrivateKey = os.Getenv("PRIVATE_KEY")

	exchange := os.Getenv("EXCHANGE_CONTRACT_ADDRESS")
	if exchange == "" {
		return Config{}, fmt.Errorf("exchange address missing")
	}
	if !common.IsHexAddress(exchange) {
		return Config{}, fmt.Errorf("invalid EXCHANGE_CONTRACT_ADDRESS %q", exchange)
	}
	cfg.Contracts.Exchange = common.HexToAddress(exchange)

	token := os.Getenv("TOKEN_CONTRACT_ADDRESS")
	if token != "" {
		if !common.IsHexAddress(token) {
			return Config{}, fmt.Errorf("invalid TOKEN_CONTRACT_ADDRESS %q", token)
		}
		cfg.Contracts.Token = common.HexToAddress(token)
	}

	if listen := os.Getenv("API_LISTEN"); listen != "" {
		cfg.API.Listen = listen
	}
	if origin := os.Getenv("API_ALLOWED_ORIGIN"); origin != "" {
		cfg.API.AllowedOrigins = []string{origin}
	}
	if path := os.Getenv("TRADE_CACHE_PATH"); path != "" {
		cfg.CachePath = path
	}

	return cfg, nil
}
