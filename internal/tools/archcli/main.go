package main

import (
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/vcjwt/evaluate"
	"xdao.co/vcjwt/model"
	"xdao.co/vcjwt/storage"
	"xdao.co/vcjwt/storage/storeregistry"

	_ "xdao.co/vcjwt/storage/grpcstore"
	_ "xdao.co/vcjwt/storage/ipfs"
	_ "xdao.co/vcjwt/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "put":
		return cmdPut(args[1:], out, errOut)
	case "get":
		return cmdGet(args[1:], out, errOut)
	case "check":
		return cmdCheck(args[1:], out, errOut)
	case "plugin":
		return cmdPlugin(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "archcli: minimal archive tool for walkthroughs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  archcli put --backend localfs --localfs-dir <dir> <file>")
	fmt.Fprintln(w, "  archcli get --backend localfs --localfs-dir <dir> --cid <cid> [--out <file>]")
	fmt.Fprintln(w, "  archcli check --backend localfs --localfs-dir <dir> --token <cid> --offset <n> --key <cid> --sig-file <path> [--policy <cid>] [--mode strict|permissive]")
	fmt.Fprintln(w, "  archcli put --backend grpc --grpc-target <host:port> <file>")
	fmt.Fprintln(w, "  archcli check --backend grpc --grpc-target <host:port> ...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "IPFS backend:")
	fmt.Fprintln(w, "  archcli put --backend ipfs --ipfs-path <repo> [--pin=true|false] <file>")
	fmt.Fprintln(w, "  archcli check --backend ipfs --ipfs-path <repo> ...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "gRPC backend:")
	fmt.Fprintln(w, "  archcli get --backend grpc --grpc-target <host:port> --cid <cid> [--out <file>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Plugins:")
	fmt.Fprintln(w, "  archcli plugin install --plugin localfs|ipfs [--version <tag>]")
	fmt.Fprintln(w, "  archcli plugin list [--with-latest]")
	fmt.Fprintln(w, "  archcli plugin verify --plugin localfs|ipfs [--version <tag>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - ipfs backend shells out to the local Kubo 'ipfs' CLI")
	fmt.Fprintln(w, "  - grpc backend talks to xdao-archgrpcd (or any archive gRPC server)")
	fmt.Fprintln(w, "  - archcli stores raw blocks (CIDv1 raw + sha2-256)")
	fmt.Fprintln(w, "  - check reads the signing input and key from the archive; the signature stays detached (--sig-file)")
}

type commonFlags struct {
	backend      string
	listBackends bool
}

func (c *commonFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&c.backend, "backend", "localfs", "archive backend name")
	fs.BoolVar(&c.listBackends, "list-backends", false, "List supported backends and exit")
	storeregistry.RegisterFlags(fs, storeregistry.UsageCLI)
}

func (c *commonFlags) openStore() (storage.Store, func() error, error) {
	return storeregistry.Open(c.backend, storeregistry.UsageCLI)
}

func printBackends(w io.Writer) {
	for _, b := range storeregistry.List(storeregistry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(w, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Description)
	}
}

func cmdPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: archcli put [common flags] <file>")
		return 2
	}

	st, closeFn, err := common.openStore()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	p := fs.Arg(0)
	b, err := os.ReadFile(p)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
		return 1
	}
	id, err := st.Put(b)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id.String())
	return 0
}

func cmdGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var cidStr string
	var outPath string
	fs.StringVar(&cidStr, "cid", "", "CID to fetch")
	fs.StringVar(&outPath, "out", "", "Output file (optional; default stdout)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: archcli get [common flags] --cid <cid> [--out <file>]")
		return 2
	}

	st, closeFn, err := common.openStore()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	id, err := cid.Decode(cidStr)
	if err != nil {
		fmt.Fprintln(errOut, storage.ErrInvalidCID)
		return 1
	}

	b, err := st.Get(id)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	if outPath == "" {
		_, _ = out.Write(b)
		return 0
	}
	if err := os.WriteFile(outPath, b, 0o600); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
		return 1
	}
	return 0
}

func cmdCheck(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var tokenCID string
	var offset int
	var keyCID string
	var sigPath string
	var policyCID string
	var mode string
	fs.StringVar(&tokenCID, "token", "", "Signing input CID")
	fs.IntVar(&offset, "offset", 0, "Payload offset in the signing input")
	fs.StringVar(&keyCID, "key", "", "Key material CID (canonical limb document)")
	fs.StringVar(&sigPath, "sig-file", "", "Detached signature file (256 raw bytes or base64url text)")
	fs.StringVar(&policyCID, "policy", "", "Claim policy CID (optional)")
	fs.StringVar(&mode, "mode", "strict", "Compliance mode: strict|permissive")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if tokenCID == "" || keyCID == "" || sigPath == "" || offset <= 0 {
		fmt.Fprintln(errOut, "usage: archcli check [common flags] --token <cid> --offset <n> --key <cid> --sig-file <path> [--policy <cid>] [--mode strict|permissive]")
		return 2
	}

	compliance := model.ComplianceStrict
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "strict":
		compliance = model.ComplianceStrict
	case "permissive":
		compliance = model.CompliancePermissive
	default:
		fmt.Fprintln(errOut, "invalid --mode")
		return 2
	}

	raw, err := os.ReadFile(sigPath)
	if err != nil {
		fmt.Fprintf(errOut, "read --sig-file: %v\n", err)
		return 1
	}
	sig, err := parseDetachedSignature(raw)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --sig-file: %v\n", err)
		return 1
	}

	st, closeFn, err := common.openStore()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	req := model.VerifierRequest{
		Token:         model.BlobRef{CID: tokenCID},
		PayloadOffset: offset,
		Key:           model.BlobRef{CID: keyCID},
		Signature:     sig,
		Compliance:    compliance,
	}
	if policyCID != "" {
		req.Policy = &model.BlobRef{CID: policyCID}
	}

	resp, err := model.CheckAndRenderVCT(req, model.CheckOptions{Archive: st})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	_, _ = out.Write(resp.VCT.Bytes)
	_, _ = fmt.Fprintf(errOut, "VCT-CID: %s\n", resp.VCT.CID)
	if resp.Report.State == string(evaluate.StateRejected) {
		return 1
	}
	return 0
}

// parseDetachedSignature accepts either the raw 256 signature bytes or their
// base64url text form.
func parseDetachedSignature(b []byte) ([]byte, error) {
	if len(b) == 256 {
		return b, nil
	}
	s := strings.TrimSpace(string(b))
	sig, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("expected 256 raw bytes or base64url text")
	}
	return sig, nil
}
