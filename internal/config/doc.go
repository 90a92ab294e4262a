// Package config defines configuration structures for the downlog CLI.
//
// Configuration can be provided via:
//   - YAML configuration file
//   - Environment variables (DOWNLOG_ prefix, optionally from a .env file)
//   - Command-line flags
//
// Later sources override earlier ones.
//
// # Structure
//
//	type Config struct {
//	    Label              string        // namespaces saved file names
//	    Timeout            time.Duration // shared per-invocation deadline
//	    SnippetLength      int           // error body snippet length
//	    Output             string        // directory or bucket URL
//	    RequireArchiveType bool
//	    RejectEmpty        bool
//	    MaxArchiveSize     int64
//	    Nodes              []Node        // fan-out targets, in order
//	    Scaners            Node          // single-target service
//	    NATS               NATSConfig
//	}
//
// # Example
//
//	label: preprod
//	timeout: 10m
//	output: s3://log-archives?region=eu-central-1
//	max_archive_size: 500MB
//	nodes:
//	  - name: node1
//	    url: https://edm.example.com/downlog/node01
//	  - name: node2
//	    url: https://edm.example.com/downlog/node02
//	scaners:
//	  url: https://edm.example.com/downlog/node03
package config
