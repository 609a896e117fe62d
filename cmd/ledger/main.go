// Command ledger is the CLI surface over the chain, wallet, and UTXO
// packages: create a chain, mine transfers, inspect balances and wallets.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/utxochain/ledger/internal/address"
	"github.com/utxochain/ledger/internal/chainstore"
	"github.com/utxochain/ledger/internal/ledgerr"
	"github.com/utxochain/ledger/internal/logging"
	"github.com/utxochain/ledger/internal/txn"
	"github.com/utxochain/ledger/internal/utxoset"
	"github.com/utxochain/ledger/internal/wallet"
)

var log = logging.For("cli")

type command struct {
	usage string
	run   func(datadir string, args []string) error
}

var commands = map[string]command{
	"create":        {"create -address ADDRESS", cmdCreate},
	"printchain":    {"printchain", cmdPrintChain},
	"printutxo":     {"printutxo", cmdPrintUTXO},
	"getbalance":    {"getbalance -address ADDRESS", cmdGetBalance},
	"transfer":      {"transfer -from FROM -to TO -amount AMOUNT", cmdTransfer},
	"createwallet":  {"createwallet", cmdCreateWallet},
	"listaddresses": {"listaddresses", cmdListAddresses},
	"reindex":       {"reindex", cmdReindex},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		printUsage()
		os.Exit(1)
	}

	datadir, rest := extractDatadir(os.Args[2:])
	if err := cmd.run(datadir, rest); err != nil {
		log.WithField("command", name).Error(err)
		os.Exit(exitCode(err))
	}
}

// extractDatadir pulls a "-datadir VALUE" (or "-datadir=VALUE") pair out of
// args, returning its value (defaulting to "./data") and the remaining
// arguments for the subcommand's own flag set to parse.
func extractDatadir(args []string) (string, []string) {
	datadir := "./data"
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-datadir" || args[i] == "--datadir":
			if i+1 < len(args) {
				datadir = args[i+1]
				i++
			}
		case strings.HasPrefix(args[i], "-datadir="):
			datadir = strings.TrimPrefix(args[i], "-datadir=")
		case strings.HasPrefix(args[i], "--datadir="):
			datadir = strings.TrimPrefix(args[i], "--datadir=")
		default:
			rest = append(rest, args[i])
		}
	}
	return datadir, rest
}

func printUsage() {
	fmt.Println("Usage:")
	for _, cmd := range commands {
		fmt.Println("  " + cmd.usage)
	}
}

func exitCode(err error) int {
	switch {
	case ledgerr.Is(err, ledgerr.ErrNotInitialized):
		return 2
	case ledgerr.Is(err, ledgerr.ErrInvalidTransaction), ledgerr.Is(err, ledgerr.ErrInsufficientFunds):
		return 3
	case ledgerr.Is(err, ledgerr.ErrAddressDecode):
		return 4
	default:
		return 1
	}
}

func paths(datadir string) (chain, wallets, utxos string) {
	return filepath.Join(datadir, "blocks"), filepath.Join(datadir, "wallets"), filepath.Join(datadir, "utxos")
}

func cmdCreateWallet(datadir string, args []string) error {
	_, walletsPath, _ := paths(datadir)
	store, err := wallet.OpenStore(walletsPath)
	if err != nil {
		return err
	}
	defer store.Close()

	addr, err := store.Create()
	if err != nil {
		return err
	}
	fmt.Printf("New wallet created with address: %s\n", addr)
	return nil
}

func cmdListAddresses(datadir string, args []string) error {
	_, walletsPath, _ := paths(datadir)
	store, err := wallet.OpenStore(walletsPath)
	if err != nil {
		return err
	}
	defer store.Close()

	addrs, err := store.Addresses()
	if err != nil {
		return err
	}
	for _, a := range addrs {
		fmt.Println(a)
	}
	return nil
}

func cmdCreate(datadir string, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	addr := fs.String("address", "", "address to receive the genesis block reward")
	fs.Parse(args)
	if *addr == "" || !address.Valid(*addr) {
		return ledgerr.Wrap(ledgerr.ErrAddressDecode, "create requires a valid -address")
	}

	chainPath, _, utxoPath := paths(datadir)
	pubKeyHash, err := address.Decode(*addr)
	if err != nil {
		return err
	}

	chain, err := chainstore.Create(chainPath, pubKeyHash)
	if err != nil {
		return err
	}
	defer chain.Close()

	utxos, err := utxoset.Open(utxoPath)
	if err != nil {
		return err
	}
	defer utxos.Close()

	if err := utxos.Reindex(chain.Iterator()); err != nil {
		return err
	}

	fmt.Println("Chain created.")
	return nil
}

func cmdReindex(datadir string, args []string) error {
	chainPath, _, utxoPath := paths(datadir)
	chain, err := chainstore.Open(chainPath)
	if err != nil {
		return err
	}
	defer chain.Close()

	utxos, err := utxoset.Open(utxoPath)
	if err != nil {
		return err
	}
	defer utxos.Close()

	if err := utxos.Reindex(chain.Iterator()); err != nil {
		return err
	}

	count, err := utxos.CountTransactions()
	if err != nil {
		return err
	}
	fmt.Printf("Done! There are %d transactions in the UTXO set.\n", count)
	return nil
}

func cmdPrintChain(datadir string, args []string) error {
	chainPath, _, _ := paths(datadir)
	chain, err := chainstore.Open(chainPath)
	if err != nil {
		return err
	}
	defer chain.Close()

	it := chain.Iterator()
	for {
		b, err := it.Next()
		if err != nil {
			return err
		}
		if b == nil {
			break
		}
		valid, verr := b.Validate()
		if verr != nil {
			return verr
		}
		fmt.Printf("Height: %d\n", b.Height)
		fmt.Printf("Prev. hash: %s\n", b.PrevBlockHash)
		fmt.Printf("Hash: %s\n", b.Hash)
		fmt.Printf("PoW valid: %v\n", valid)
		for _, tx := range b.Transactions {
			fmt.Println(tx.String())
		}
		fmt.Println()
	}
	return nil
}

func cmdPrintUTXO(datadir string, args []string) error {
	_, _, utxoPath := paths(datadir)
	utxos, err := utxoset.Open(utxoPath)
	if err != nil {
		return err
	}
	defer utxos.Close()

	entries, err := utxos.All()
	if err != nil {
		return err
	}
	for k, out := range entries {
		fmt.Printf("%s -> value=%d pubKeyHash=%x\n", k, out.Value, out.PubKeyHash)
	}
	return nil
}

func cmdGetBalance(datadir string, args []string) error {
	fs := flag.NewFlagSet("getbalance", flag.ExitOnError)
	addr := fs.String("address", "", "address to check")
	fs.Parse(args)
	if *addr == "" || !address.Valid(*addr) {
		return ledgerr.Wrap(ledgerr.ErrAddressDecode, "getbalance requires a valid -address")
	}

	_, _, utxoPath := paths(datadir)
	utxos, err := utxoset.Open(utxoPath)
	if err != nil {
		return err
	}
	defer utxos.Close()

	pubKeyHash, err := address.Decode(*addr)
	if err != nil {
		return err
	}
	outs, err := utxos.FindUTXO(pubKeyHash)
	if err != nil {
		return err
	}

	var balance int64
	for _, o := range outs {
		balance += o.Value
	}
	fmt.Printf("Balance of %s: %d\n", *addr, balance)
	return nil
}

func cmdTransfer(datadir string, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	from := fs.String("from", "", "source address")
	to := fs.String("to", "", "destination address")
	amount := fs.Int64("amount", 0, "amount to transfer")
	fs.Parse(args)

	if *from == "" || !address.Valid(*from) {
		return ledgerr.Wrap(ledgerr.ErrAddressDecode, "transfer requires a valid -from address")
	}
	if *to == "" || !address.Valid(*to) {
		return ledgerr.Wrap(ledgerr.ErrAddressDecode, "transfer requires a valid -to address")
	}
	if *amount <= 0 {
		return ledgerr.Wrap(ledgerr.ErrInvalidTransaction, "transfer requires a positive -amount")
	}

	chainPath, walletsPath, utxoPath := paths(datadir)

	chain, err := chainstore.Open(chainPath)
	if err != nil {
		return err
	}
	defer chain.Close()

	utxos, err := utxoset.Open(utxoPath)
	if err != nil {
		return err
	}
	defer utxos.Close()

	wallets, err := wallet.OpenStore(walletsPath)
	if err != nil {
		return err
	}
	defer wallets.Close()

	fromWallet, err := wallets.Get(*from)
	if err != nil {
		return err
	}
	if fromWallet == nil {
		return ledgerr.Wrapf(ledgerr.ErrNotInitialized, "no wallet stored for %s", *from)
	}

	toPubKeyHash, err := address.Decode(*to)
	if err != nil {
		return err
	}

	tx, err := txn.NewTransferTx(fromWallet.PubKeyHash(), fromWallet.PublicKey, fromWallet.PrivateKey, toPubKeyHash, *amount, utxos, chain)
	if err != nil {
		return err
	}

	minedBlock, err := chain.MineBlock([]*txn.Transaction{tx})
	if err != nil {
		return err
	}
	if err := utxos.Update(minedBlock); err != nil {
		return err
	}

	fmt.Println("Success!")
	return nil
}
