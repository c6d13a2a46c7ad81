package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"xdao.co/vcjwt/storage"
	"xdao.co/vcjwt/storage/grpcstore"
	"xdao.co/vcjwt/storage/storeconfig"
	"xdao.co/vcjwt/storage/storeregistry"

	_ "xdao.co/vcjwt/storage/ipfs"
	_ "xdao.co/vcjwt/storage/localfs"
)

func main() {
	fs := flag.NewFlagSet("xdao-archgrpcd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "localfs", "archive backend name")
	configPath := fs.String("config", "", "archive config file (multi-backend; overrides --backend)")
	readOnly := fs.Bool("read-only", false, "serve Get/Has only and reject Put")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")

	storeregistry.RegisterFlags(fs, storeregistry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range storeregistry.List(storeregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	var st storage.Store
	var closeFn func() error
	var err error
	if *configPath != "" {
		cfg, cerr := storeconfig.LoadFile(*configPath)
		if cerr != nil {
			fmt.Fprintln(os.Stderr, cerr)
			os.Exit(2)
		}
		st, closeFn, err = cfg.Open(storeregistry.UsageDaemon, "")
	} else {
		st, closeFn, err = storeregistry.Open(*backend, storeregistry.UsageDaemon)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}
	if *readOnly {
		st = storage.ReadOnly{Store: st}
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcstore.RegisterArchiveServer(s, &grpcstore.Server{Store: st})

	source := "backend=" + *backend
	if *configPath != "" {
		source = "config=" + *configPath
	}
	fmt.Fprintf(os.Stderr, "xdao-archgrpcd listening on %s (%s)\n", lis.Addr().String(), source)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
