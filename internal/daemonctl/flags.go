package daemonctl

import (
	"strconv"

	"bobbin/internal/config"
)

// Options is the daemon configuration a spawn is built from.
type Options struct {
	Binary              string
	RPCPort             int
	Secret              string
	DownloadDir         string
	MaxConcurrent       int
	DisableDHT          bool
	DisablePeerExchange bool
	SeedRatio           float64
	CheckCertificate    bool
	DisableCORS         bool
}

// OptionsFromConfig maps the [aria2] and [paths] sections onto spawn options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Binary:              cfg.Aria2.Binary,
		RPCPort:             cfg.Aria2.RPCPort,
		Secret:              cfg.Aria2.RPCSecret,
		DownloadDir:         cfg.Paths.DownloadDir,
		MaxConcurrent:       cfg.Aria2.MaxConcurrentDownloads,
		DisableDHT:          cfg.Aria2.DisableDHT,
		DisablePeerExchange: cfg.Aria2.DisablePeerExchange,
		SeedRatio:           cfg.Aria2.SeedRatio,
		CheckCertificate:    cfg.Aria2.CheckCertificate,
		DisableCORS:         cfg.Aria2.DisableCORS,
	}
}

// Args builds the aria2c command line.
func (o Options) Args() []string {
	maxConcurrent := o.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	args := []string{
		"--enable-rpc=true",
		"--rpc-listen-port=" + strconv.Itoa(o.RPCPort),
		"--rpc-listen-all=false",
		"--continue=true",
		"--auto-file-renaming=true",
		"--allow-overwrite=false",
		"--max-connection-per-server=16",
		"--split=16",
		"--min-split-size=1M",
		"--max-concurrent-downloads=" + strconv.Itoa(maxConcurrent),
		"--file-allocation=none",
	}
	if o.Secret != "" {
		args = append(args, "--rpc-secret="+o.Secret)
	}
	if o.DownloadDir != "" {
		args = append(args, "--dir="+o.DownloadDir)
	}
	args = append(args,
		"--enable-dht="+strconv.FormatBool(!o.DisableDHT),
		"--enable-peer-exchange="+strconv.FormatBool(!o.DisablePeerExchange),
	)
	if o.SeedRatio > 0 {
		args = append(args, "--seed-ratio="+strconv.FormatFloat(o.SeedRatio, 'f', -1, 64))
	}
	args = append(args,
		"--check-certificate="+strconv.FormatBool(o.CheckCertificate),
		"--rpc-allow-origin-all="+strconv.FormatBool(!o.DisableCORS),
	)
	return args
}
