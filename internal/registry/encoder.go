// Package registry 攻击记录合约的 Go 绑定：ABI 编解码、读写门面和事件解析。
package registry

import (
	"bytes"
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	txerrors "attackreg/internal/errors"
	"attackreg/internal/submitter"
)

//go:embed abi/AttackRegistry.json
var registryABIJSON []byte

// ParseABI 解析内嵌的合约 ABI
func ParseABI() (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(registryABIJSON))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse registry abi failed: %w", err)
	}
	return parsed, nil
}

// ABIEncoder 实现 submitter.Encoder
type ABIEncoder struct {
	abi abi.ABI
}

func NewEncoder() (*ABIEncoder, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, err
	}
	return &ABIEncoder{abi: parsed}, nil
}

func (e *ABIEncoder) ABI() abi.ABI { return e.abi }

// Encode 按方法签名检查参数个数和类型后打包 calldata
func (e *ABIEncoder) Encode(desc submitter.CallDescriptor) (submitter.Clause, error) {
	method, ok := e.abi.Methods[desc.Function]
	if !ok {
		return submitter.Clause{}, txerrors.Encoding("unknown function "+desc.Function, nil)
	}
	if len(desc.Args) != len(method.Inputs) {
		return submitter.Clause{}, txerrors.Encoding(
			fmt.Sprintf("%s expects %d argument(s), got %d", method.Sig, len(method.Inputs), len(desc.Args)), nil)
	}

	args := make([]any, len(desc.Args))
	for i, in := range method.Inputs {
		v, err := coerce(in.Type, desc.Args[i])
		if err != nil {
			return submitter.Clause{}, txerrors.Encoding(fmt.Sprintf("%s argument %d (%s)", method.Name, i, in.Name), err)
		}
		args[i] = v
	}

	data, err := e.abi.Pack(method.Name, args...)
	if err != nil {
		return submitter.Clause{}, txerrors.Encoding("abi pack failed", err)
	}
	return submitter.Clause{To: desc.Target, Value: new(big.Int), Data: data}, nil
}

// Decode 是 Encode 的逆操作，uint256 参数解码为 *big.Int
func (e *ABIEncoder) Decode(clause submitter.Clause) (submitter.CallDescriptor, error) {
	if len(clause.Data) < 4 {
		return submitter.CallDescriptor{}, txerrors.Encoding("calldata shorter than selector", nil)
	}
	method, err := e.abi.MethodById(clause.Data[:4])
	if err != nil {
		return submitter.CallDescriptor{}, txerrors.Encoding("unknown selector", err)
	}
	args, err := method.Inputs.Unpack(clause.Data[4:])
	if err != nil {
		return submitter.CallDescriptor{}, txerrors.Encoding("abi unpack failed", err)
	}
	return submitter.CallDescriptor{Target: clause.To, Function: method.Name, Args: args}, nil
}

// DecodeOutput 解码只读调用的返回值
func (e *ABIEncoder) DecodeOutput(function string, out []byte) ([]any, error) {
	method, ok := e.abi.Methods[function]
	if !ok {
		return nil, txerrors.Encoding("unknown function "+function, nil)
	}
	values, err := method.Outputs.Unpack(out)
	if err != nil {
		return nil, txerrors.Encoding("decode "+function+" output failed", err)
	}
	return values, nil
}

// coerce 把常见 Go 类型转换成 ABI 需要的类型。合约只用到 string 和 uint256。
func coerce(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", v)
		}
		return s, nil
	case abi.UintTy:
		if t.Size != 256 {
			return nil, fmt.Errorf("unsupported type %s", t)
		}
		n, err := toBig(v)
		if err != nil {
			return nil, err
		}
		if n.Sign() < 0 || n.BitLen() > 256 {
			return nil, fmt.Errorf("%s out of range for uint256", n)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func toBig(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil *big.Int")
		}
		return new(big.Int).Set(n), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil, fmt.Errorf("empty integer")
		}
		b, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("not an integer: %q", n)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("want integer, got %T", v)
	}
}
