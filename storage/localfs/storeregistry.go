package localfs

import (
	"flag"
	"fmt"

	"xdao.co/vcjwt/storage"
	"xdao.co/vcjwt/storage/storeregistry"
)

var (
	flagLocalDir string
)

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem archive (directory)",
		Usage:       storeregistry.UsageCLI | storeregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "LocalFS archive directory (for --backend=localfs)")
		},
		Open: func() (storage.Store, func() error, error) {
			if flagLocalDir == "" {
				return nil, nil, fmt.Errorf("missing --localfs-dir")
			}
			st, err := New(flagLocalDir)
			return st, nil, err
		},
	})
}
