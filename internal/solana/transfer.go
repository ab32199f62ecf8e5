package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log"
	"math"

	"github.com/mr-tron/base58"
)

// transferCheckedIndex is the SPL token program instruction index for
// TransferChecked.
const transferCheckedIndex = 12

// Keypair is an ed25519 signing key with its base58 public key.
type Keypair struct {
	private ed25519.PrivateKey
	public  string
}

// NewKeypairFromBase58 parses a 64-byte base58-encoded secret key, the
// format exported by standard Solana wallets.
func NewKeypairFromBase58(secret string) (*Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key is %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}

	private := ed25519.PrivateKey(raw)
	public := base58.Encode(private.Public().(ed25519.PublicKey))
	return &Keypair{private: private, public: public}, nil
}

// PublicKey returns the base58 public key.
func (k *Keypair) PublicKey() string {
	return k.public
}

// Sign signs a message with the private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// BuildTransferChecked assembles and signs a legacy transaction carrying
// a single SPL TransferChecked instruction. Returns the base64 wire form.
func BuildTransferChecked(payer *Keypair, sourceATA, destATA, mint, blockhash string, amount uint64, decimals uint8) (string, error) {
	// Account ordering: writable signer first, then writable non-signers,
	// then readonly non-signers.
	keys := []string{payer.PublicKey(), sourceATA, destATA, mint, TokenProgramID}

	accounts := make([][]byte, 0, len(keys))
	for _, key := range keys {
		raw, err := base58.Decode(key)
		if err != nil {
			return "", fmt.Errorf("decode account %s: %w", key, err)
		}
		if len(raw) != 32 {
			return "", fmt.Errorf("account %s is not a 32-byte key", key)
		}
		accounts = append(accounts, raw)
	}

	blockhashBytes, err := base58.Decode(blockhash)
	if err != nil {
		return "", fmt.Errorf("decode blockhash: %w", err)
	}
	if len(blockhashBytes) != 32 {
		return "", fmt.Errorf("blockhash is not 32 bytes")
	}

	// TransferChecked data: index, amount u64 LE, decimals.
	data := make([]byte, 10)
	data[0] = transferCheckedIndex
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals

	var msg []byte

	// Header: 1 required signature, 0 readonly signed, 2 readonly
	// unsigned (mint and token program).
	msg = append(msg, 1, 0, 2)

	msg = appendCompactU16(msg, uint16(len(accounts)))
	for _, acc := range accounts {
		msg = append(msg, acc...)
	}

	msg = append(msg, blockhashBytes...)

	// One instruction: program index 4 (token program), accounts
	// source(1), mint(3), dest(2), owner(0).
	msg = appendCompactU16(msg, 1)
	msg = append(msg, 4)
	msg = appendCompactU16(msg, 4)
	msg = append(msg, 1, 3, 2, 0)
	msg = appendCompactU16(msg, uint16(len(data)))
	msg = append(msg, data...)

	signature := payer.Sign(msg)

	var tx []byte
	tx = appendCompactU16(tx, 1)
	tx = append(tx, signature...)
	tx = append(tx, msg...)

	return base64.StdEncoding.EncodeToString(tx), nil
}

// appendCompactU16 appends a compact-u16 (shortvec) length prefix.
func appendCompactU16(buf []byte, v uint16) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// TransferService executes SPL token transfers over a single path:
// resolve ATAs, build TransferChecked, sign, optionally simulate, send.
// Failures surface as the typed errors in this package.
type TransferService struct {
	rpc      RPCClient
	logger   *log.Logger
	simulate bool
}

// TransferServiceOptions configures TransferService.
type TransferServiceOptions struct {
	RPC    RPCClient
	Logger *log.Logger
	// Simulate enables preflight simulation before submission.
	Simulate bool
}

// NewTransferService creates a TransferService.
func NewTransferService(opts TransferServiceOptions) *TransferService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &TransferService{
		rpc:      opts.RPC,
		logger:   logger,
		simulate: opts.Simulate,
	}
}

// Transfer sends uiAmount tokens of mint from the payer wallet to the
// destination wallet and returns the transaction signature.
func (s *TransferService) Transfer(ctx context.Context, payer *Keypair, destination, mint string, uiAmount float64) (string, error) {
	if uiAmount <= 0 {
		return "", fmt.Errorf("amount must be positive, got %f", uiAmount)
	}

	sourceATA, err := DeriveATA(payer.PublicKey(), mint)
	if err != nil {
		return "", err
	}
	destATA, err := DeriveATA(destination, mint)
	if err != nil {
		return "", err
	}

	// The source balance check doubles as existence and decimals lookup.
	balance, err := s.rpc.GetTokenAccountBalance(ctx, sourceATA)
	if err != nil {
		return "", fmt.Errorf("source token account: %w", err)
	}

	amount := uint64(math.Round(uiAmount * math.Pow10(int(balance.Decimals))))
	if amount > balance.Amount {
		return "", fmt.Errorf("insufficient balance: have %d, need %d raw units", balance.Amount, amount)
	}

	// The destination ATA must already exist; this path does not create
	// accounts on behalf of the recipient.
	if _, err := s.rpc.GetAccountInfo(ctx, destATA); err != nil {
		return "", fmt.Errorf("destination token account: %w", err)
	}

	blockhash, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("latest blockhash: %w", err)
	}

	txBase64, err := BuildTransferChecked(payer, sourceATA, destATA, mint, blockhash, amount, balance.Decimals)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	if s.simulate {
		if err := s.rpc.SimulateTransaction(ctx, txBase64); err != nil {
			return "", err
		}
	}

	signature, err := s.rpc.SendTransaction(ctx, txBase64)
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	s.logger.Printf("[solana] transfer %f of %s to %s: %s", uiAmount, mint, destination, signature)
	return signature, nil
}
