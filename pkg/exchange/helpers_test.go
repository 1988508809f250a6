package exchange

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func wei(ether int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(ether), big.NewInt(1e18))
}

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		name  string
		base  *big.Int
		token *big.Int
		want  string
	}{
		{
			name:  "one ether for a thousand tokens",
			base:  wei(1),
			token: wei(1000),
			want:  "1000000000000000", // 0.001 scaled by 10^18
		},
		{
			name:  "equal legs",
			base:  wei(1),
			token: wei(1),
			want:  "1000000000000000000",
		},
		{
			name:  "zero token amount",
			base:  wei(1),
			token: big.NewInt(0),
			want:  "0",
		},
		{
			name:  "nil token amount",
			base:  wei(1),
			token: nil,
			want:  "0",
		},
		{
			name:  "truncating division",
			base:  big.NewInt(10),
			token: big.NewInt(3),
			want:  "3333333333333333333", // 10*10^18/3, truncated
		},
		{
			name:  "amounts beyond 64-bit range",
			base:  new(big.Int).Mul(wei(1_000_000_000), big.NewInt(1_000_000)),
			token: wei(1),
			want:  new(big.Int).Mul(wei(1_000_000_000), big.NewInt(1_000_000)).String(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnitPrice(tt.base, tt.token)
			if got.String() != tt.want {
				t.Errorf("UnitPrice() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUnitPrice_DoesNotMutateInputs(t *testing.T) {
	base := big.NewInt(100)
	token := big.NewInt(7)
	UnitPrice(base, token)
	if base.Int64() != 100 || token.Int64() != 7 {
		t.Errorf("inputs mutated: base=%s token=%s", base, token)
	}
}

func TestTradeTypeOf(t *testing.T) {
	token := common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")

	if got := tradeTypeOf(EtherAddress); got != Sell {
		t.Errorf("buy leg ether: got %v, want Sell", got)
	}
	if got := tradeTypeOf(token); got != Buy {
		t.Errorf("buy leg token: got %v, want Buy", got)
	}
}

func TestTimeFromUnix(t *testing.T) {
	got := timeFromUnix(big.NewInt(1612345678))
	want := time.Date(2021, 2, 3, 9, 47, 58, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("timeFromUnix() = %v, want %v", got, want)
	}
}
