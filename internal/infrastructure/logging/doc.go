// Package logging configures the hub's structured logger.
//
// Logger embeds *slog.Logger, so components call Info, Warn, Error and
// Debug with key/value pairs as usual. Records carry "service" and
// "version" attributes; components add their own with With:
//
//	log := logging.New(cfg.Logging, version)
//	defer log.Close()
//	hub.SetLogger(log.With("component", "registry"))
//
// Output is JSON by default or text for local runs, written to stdout,
// stderr or a file rotated by lumberjack:
//
//	logging:
//	  level: info        # debug, info, warn, error
//	  format: json       # json, text
//	  output: file       # stdout, stderr, file
//	  file:
//	    path: ./logs/smarthub.log
//	    max_size: 100    # MB
//	    max_backups: 3
//	    max_age: 28      # days
//	    compress: true
//
// Device server addresses and entity names are safe to log. Broker and
// InfluxDB credentials are not.
package logging
