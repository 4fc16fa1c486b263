// Package config loads daemon configuration from the environment.
//
// Every field is read with the env package and carries a default chosen for
// development: an empty environment yields a daemon with file-backed state,
// an in-memory record store, and the offline template drafter.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("listening on %s\n", cfg.HTTPAddr())
package config
