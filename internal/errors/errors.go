// Package errors 定义交易提交流程的错误分类。
//
// 每个步骤失败时返回 *SubmitError，调用方用 errors.Is 对照下面的哨兵错误判断类别，
// 用 errors.As 取出 Step / TxID 等上下文。
package errors

import (
	"errors"
	"fmt"
)

// Code 错误类别
type Code string

const (
	CodeEncoding            Code = "ENCODING"
	CodeEstimation          Code = "ESTIMATION"
	CodeSignerNotFound      Code = "SIGNER_NOT_FOUND"
	CodeNetwork             Code = "NETWORK"
	CodeRejected            Code = "REJECTED"
	CodeConfirmationTimeout Code = "CONFIRMATION_TIMEOUT"
	CodeConfig              Code = "CONFIG"
)

// 哨兵错误，与 Code 一一对应
var (
	ErrEncoding            = errors.New("encoding error")
	ErrEstimation          = errors.New("gas estimation reverted")
	ErrSignerNotFound      = errors.New("signer not found")
	ErrNetwork             = errors.New("network error")
	ErrRejected            = errors.New("transaction rejected")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrConfig              = errors.New("config error")
)

var sentinels = map[Code]error{
	CodeEncoding:            ErrEncoding,
	CodeEstimation:          ErrEstimation,
	CodeSignerNotFound:      ErrSignerNotFound,
	CodeNetwork:             ErrNetwork,
	CodeRejected:            ErrRejected,
	CodeConfirmationTimeout: ErrConfirmationTimeout,
	CodeConfig:              ErrConfig,
}

// SubmitError 某一步骤的失败
type SubmitError struct {
	Code    Code
	Step    string // encode / estimate / build / sign / send / confirm
	Message string
	TxID    string // 仅在广播之后的错误里有值
	Cause   error
}

// New 构造一个 SubmitError
func New(code Code, step, message string, cause error) *SubmitError {
	return &SubmitError{Code: code, Step: step, Message: message, Cause: cause}
}

func Encoding(message string, cause error) *SubmitError {
	return New(CodeEncoding, "encode", message, cause)
}

func Estimation(message string, cause error) *SubmitError {
	return New(CodeEstimation, "estimate", message, cause)
}

func SignerNotFound(address string) *SubmitError {
	return New(CodeSignerNotFound, "sign", "no signer registered for "+address, nil)
}

func Network(step, message string, cause error) *SubmitError {
	return New(CodeNetwork, step, message, cause)
}

func Rejected(message string, cause error) *SubmitError {
	return New(CodeRejected, "send", message, cause)
}

// ConfirmationTimeout 结果未知：交易可能稍后上链，调用方应按 TxID 重新查询而不是重发
func ConfirmationTimeout(txID string, cause error) *SubmitError {
	e := New(CodeConfirmationTimeout, "confirm", "no receipt yet, outcome unknown", cause)
	e.TxID = txID
	return e
}

func Config(message string, cause error) *SubmitError {
	return New(CodeConfig, "config", message, cause)
}

func (e *SubmitError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Code, e.Step, e.Message)
	if e.TxID != "" {
		msg += " (tx " + e.TxID + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 同时暴露类别哨兵和底层原因
func (e *SubmitError) Unwrap() []error {
	out := make([]error, 0, 2)
	if s, ok := sentinels[e.Code]; ok {
		out = append(out, s)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// CodeOf 返回 err 链上第一个 SubmitError 的类别，没有则为空
func CodeOf(err error) Code {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsRetryable 只有网络错误可以重试：广播前什么都没发生，广播时重发同一份签名字节也不会产生第二笔交易
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeNetwork
}

// TxIDOf 从错误里取出已广播交易的 ID
func TxIDOf(err error) string {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.TxID
	}
	return ""
}
