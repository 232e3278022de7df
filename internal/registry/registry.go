package registry

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	txerrors "attackreg/internal/errors"
	"attackreg/internal/submitter"
)

// 合约方法名
const (
	MethodLogAttack                 = "logAttack"
	MethodLogAttackWithTypeTracking = "logAttackWithTypeTracking"
	MethodDeleteAttack              = "deleteAttack"
	MethodDeleteAttacksByType       = "deleteAttacksByType"
	MethodDeleteAllAttacks          = "deleteAllAttacks"
	MethodGetTotalAttacks           = "getTotalAttacks"
	MethodGetAttack                 = "getAttack"
	MethodGetAllAttacksByType       = "getAllAttacksByType"
	MethodRecords                   = "records"
)

// Attack 一条攻击记录
type Attack struct {
	IP        string
	Type      string
	Timestamp *big.Int // 区块时间，秒
}

func (a Attack) Time() time.Time {
	if a.Timestamp == nil {
		return time.Time{}
	}
	return time.Unix(a.Timestamp.Int64(), 0).UTC()
}

// Caller 只读调用
type Caller interface {
	Call(ctx context.Context, clause submitter.Clause) ([]byte, error)
}

// Sender 写调用，由 *submitter.Submitter 实现
type Sender interface {
	Submit(ctx context.Context, desc submitter.CallDescriptor, from common.Address) (*submitter.Result, error)
}

// Registry 合约门面。只做读操作时 sender 可以为 nil。
type Registry struct {
	address common.Address
	enc     *ABIEncoder
	caller  Caller
	sender  Sender
	from    common.Address
}

func New(address common.Address, enc *ABIEncoder, caller Caller, sender Sender, from common.Address) *Registry {
	return &Registry{address: address, enc: enc, caller: caller, sender: sender, from: from}
}

func (r *Registry) Address() common.Address { return r.address }

func (r *Registry) LogAttack(ctx context.Context, ip, attackType string) (*submitter.Result, error) {
	return r.submit(ctx, MethodLogAttack, ip, attackType)
}

func (r *Registry) LogAttackWithTypeTracking(ctx context.Context, ip, attackType string) (*submitter.Result, error) {
	return r.submit(ctx, MethodLogAttackWithTypeTracking, ip, attackType)
}

func (r *Registry) DeleteAttack(ctx context.Context, index *big.Int) (*submitter.Result, error) {
	return r.submit(ctx, MethodDeleteAttack, index)
}

func (r *Registry) DeleteAttacksByType(ctx context.Context, attackType string) (*submitter.Result, error) {
	return r.submit(ctx, MethodDeleteAttacksByType, attackType)
}

func (r *Registry) DeleteAllAttacks(ctx context.Context) (*submitter.Result, error) {
	return r.submit(ctx, MethodDeleteAllAttacks)
}

func (r *Registry) submit(ctx context.Context, function string, args ...any) (*submitter.Result, error) {
	if r.sender == nil {
		return nil, txerrors.Config("registry opened read-only, "+function+" needs a sender", nil)
	}
	desc := submitter.CallDescriptor{Target: r.address, Function: function, Args: args}
	return r.sender.Submit(ctx, desc, r.from)
}

// TotalAttacks 调用 getTotalAttacks
func (r *Registry) TotalAttacks(ctx context.Context) (*big.Int, error) {
	out, err := r.call(ctx, MethodGetTotalAttacks)
	if err != nil {
		return nil, err
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getTotalAttacks output %T", out[0])
	}
	return n, nil
}

// Attack 调用 getAttack(index)
func (r *Registry) Attack(ctx context.Context, index *big.Int) (Attack, error) {
	out, err := r.call(ctx, MethodGetAttack, index)
	if err != nil {
		return Attack{}, err
	}
	return attackFromValues(MethodGetAttack, out)
}

// Record 读取公开的 records(index) 存储数组
func (r *Registry) Record(ctx context.Context, index *big.Int) (Attack, error) {
	out, err := r.call(ctx, MethodRecords, index)
	if err != nil {
		return Attack{}, err
	}
	return attackFromValues(MethodRecords, out)
}

// AttacksByType 调用 getAllAttacksByType(type)
func (r *Registry) AttacksByType(ctx context.Context, attackType string) ([]Attack, error) {
	out, err := r.call(ctx, MethodGetAllAttacksByType, attackType)
	if err != nil {
		return nil, err
	}
	type attackTuple struct {
		IpAddress  string
		AttackType string
		Timestamp  *big.Int
	}
	tuples := *abi.ConvertType(out[0], new([]attackTuple)).(*[]attackTuple)

	attacks := make([]Attack, 0, len(tuples))
	for _, t := range tuples {
		attacks = append(attacks, Attack{IP: t.IpAddress, Type: t.AttackType, Timestamp: t.Timestamp})
	}
	return attacks, nil
}

// Events 解析回执中本合约发出的事件
func (r *Registry) Events(receipt *submitter.Receipt) ([]Event, error) {
	if receipt == nil {
		return nil, nil
	}
	return r.enc.ParseEvents(r.address, receipt.Logs)
}

func (r *Registry) call(ctx context.Context, function string, args ...any) ([]any, error) {
	clause, err := r.enc.Encode(submitter.CallDescriptor{Target: r.address, Function: function, Args: args})
	if err != nil {
		return nil, err
	}
	raw, err := r.caller.Call(ctx, clause)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", function, err)
	}
	out, err := r.enc.DecodeOutput(function, raw)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, txerrors.Encoding(function+" returned no values", nil)
	}
	return out, nil
}

func attackFromValues(function string, out []any) (Attack, error) {
	if len(out) != 3 {
		return Attack{}, fmt.Errorf("unexpected %s output length %d", function, len(out))
	}
	ip, ok1 := out[0].(string)
	typ, ok2 := out[1].(string)
	ts, ok3 := out[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return Attack{}, fmt.Errorf("unexpected %s output types %T, %T, %T", function, out[0], out[1], out[2])
	}
	return Attack{IP: ip, Type: typ, Timestamp: ts}, nil
}
