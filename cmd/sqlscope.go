package cmd

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/hcl"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leftmike/sqlscope/catalog"
	"github.com/leftmike/sqlscope/flags"
)

var (
	sqlscopeCmd = &cobra.Command{
		Use:   "sqlscope",
		Short: "A SQL name resolver",
		Long: "Sqlscope validates SELECT queries against a catalog and reports how each " +
			"identifier resolves.",
		PersistentPreRunE: sqlscopePreRun,
		PersistentPostRun: sqlscopePostRun,
		SilenceUsage:      true,
	}

	logFile   = "sqlscope.log"
	logLevel  = "info"
	logStderr = false
	logWriter io.WriteCloser

	configFile = "sqlscope.hcl"
	noConfig   = false

	catalogFile = "catalog.hcl"

	cfgVars   = map[string]*pflag.Flag{}
	flgs      flags.Flags
	usedFlags = map[string]struct{}{}
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	fs := sqlscopeCmd.PersistentFlags()

	fs.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	cfgVars["log-file"] = fs.Lookup("log-file")

	fs.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	cfgVars["log-level"] = fs.Lookup("log-level")

	fs.BoolVarP(&logStderr, "log-stderr", "s", logStderr, "log to standard error")

	fs.StringVar(&configFile, "config-file", configFile, "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", noConfig, "don't load config file")

	fs.StringVarP(&catalogFile, "catalog", "c", catalogFile, "`file` containing the catalog")
	cfgVars["catalog"] = fs.Lookup("catalog")

	flgs = flags.Bind(fs)
	flags.ListFlags(
		func(nam string, f flags.Flag) {
			cfgVars[nam] = fs.Lookup(nam)
		})
}

func Execute() error {
	return sqlscopeCmd.Execute()
}

func sqlscopePreRun(cmd *cobra.Command, args []string) error {
	cmd.Flags().Visit(
		func(flg *pflag.Flag) {
			usedFlags[flg.Name] = struct{}{}
		})

	if configFile != "" && !noConfig {
		err := loadConfig()
		if err != nil {
			// A missing default config file is not an error.
			_, used := usedFlags["config-file"]
			if used || !os.IsNotExist(errors.UnwrapAll(err)) {
				return errors.Wrap(err, "sqlscope")
			}
		}
	}

	if !logStderr && logFile != "" {
		var err error
		logWriter, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logWriter = nil
			return errors.Wrap(err, "sqlscope")
		}
		log.SetOutput(logWriter)
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return errors.Wrap(err, "sqlscope")
	}
	log.SetLevel(ll)

	log.WithField("pid", os.Getpid()).Info("sqlscope starting")
	return nil
}

func sqlscopePostRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("sqlscope done")

	if logWriter != nil {
		logWriter.Close()
	}
}

func loadConfig() error {
	b, err := ioutil.ReadFile(configFile)
	if err != nil {
		return err
	}

	var cfg map[string]interface{}
	err = hcl.Decode(&cfg, string(b))
	if err != nil {
		return err
	}

	for name, val := range cfg {
		flg, ok := cfgVars[name]
		if !ok {
			return errors.Newf("%s is not a config variable", name)
		}
		if _, ok := usedFlags[flg.Name]; ok {
			continue
		}
		if _, ok := flags.LookupFlag(name); ok {
			if _, ok := val.(bool); !ok {
				return errors.Newf("%s: expected boolean value; got %v", name, val)
			}
		}
		err := flg.Value.Set(fmt.Sprintf("%v", val))
		if err != nil {
			return errors.Wrap(err, name)
		}
	}

	return nil
}

func loadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.Load(catalogFile)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"catalog": catalogFile,
		"tables":  len(cat.Tables()),
	}).Debug("catalog loaded")
	return cat, nil
}
