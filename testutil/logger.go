package testutil

import (
	"flag"
	"io/ioutil"
	"os"

	log "github.com/sirupsen/logrus"
)

var (
	logFile   = ""
	logLevel  = "warn"
	logStderr = false
)

func init() {
	flag.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	flag.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	flag.BoolVar(&logStderr, "log-stderr", logStderr, "log to standard error")
}

// SetupLogger points the standard logger at the file named by -log-file, at standard error
// with -log-stderr, and otherwise discards log output. It must be called after the test
// flags have been parsed.
func SetupLogger(pkg string) (func(), error) {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(ll)

	done := func() {}
	if logStderr {
		log.SetOutput(os.Stderr)
	} else if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return nil, err
		}
		log.SetOutput(f)
		done = func() {
			f.Close()
		}
	} else {
		log.SetOutput(ioutil.Discard)
	}

	log.WithFields(log.Fields{
		"pid":     os.Getpid(),
		"package": pkg,
	}).Info("tests starting")
	return done, nil
}
