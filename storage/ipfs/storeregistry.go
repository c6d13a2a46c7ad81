package ipfs

import (
	"flag"
	"os"

	"xdao.co/vcjwt/storage"
	"xdao.co/vcjwt/storage/storeregistry"
)

var (
	flagBin  string
	flagPath string
	flagPin  bool
)

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:        "ipfs",
		Description: "Kubo CLI archive (local IPFS repo, offline)",
		Usage:       storeregistry.UsageCLI | storeregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagBin, "ipfs-bin", "ipfs", "Path to the Kubo ipfs binary (for --backend=ipfs)")
			fs.StringVar(&flagPath, "ipfs-path", "", "IPFS_PATH of the local repo; empty uses the ipfs default")
			fs.BoolVar(&flagPin, "pin", true, "Pin archived blocks in the local IPFS repo")
		},
		Open: func() (storage.Store, func() error, error) {
			opts := Options{Bin: flagBin, Pin: flagPin}
			if flagPath != "" {
				opts.Env = append(os.Environ(), "IPFS_PATH="+flagPath)
			}
			return New(opts), nil, nil
		},
	})
}
