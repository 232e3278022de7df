package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Identity 发送方身份：私钥及其对应地址。打印时只输出地址。
type Identity struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

func NewIdentity(priv *ecdsa.PrivateKey) *Identity {
	return &Identity{PrivateKey: priv, Address: crypto.PubkeyToAddress(priv.PublicKey)}
}

func (i *Identity) String() string   { return "Identity{" + i.Address.Hex() + "}" }
func (i *Identity) GoString() string { return i.String() }

// ParseIdentity 解析十六进制私钥，允许 0x 前缀
func ParseIdentity(hexKey string) (*Identity, error) {
	hexKey = strings.TrimSpace(hexKey)
	hexKey = strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")
	priv, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		// 不把原始输入放进错误信息
		return nil, fmt.Errorf("parse private key failed: invalid secp256k1 key")
	}
	return NewIdentity(priv), nil
}

// ReadIdentityFile 从文件读取十六进制私钥，例如挂载的 secret
func ReadIdentityFile(path string) (*Identity, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key file failed: %w", err)
	}
	return ParseIdentity(string(b))
}

// LoadKeystore 解密 go-ethereum keystore 格式的 JSON 密钥文件
func LoadKeystore(path, passphrase string) (*Identity, error) {
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore failed: %w", err)
	}
	key, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore failed: %w", err)
	}
	return &Identity{PrivateKey: key.PrivateKey, Address: key.Address}, nil
}

// LoadKeystoreFile 与 LoadKeystore 相同，口令从文件读取（去掉结尾换行）
func LoadKeystoreFile(path, passwordFile string) (*Identity, error) {
	pw, err := os.ReadFile(passwordFile)
	if err != nil {
		return nil, fmt.Errorf("read keystore password failed: %w", err)
	}
	return LoadKeystore(path, strings.TrimRight(string(pw), "\r\n"))
}
