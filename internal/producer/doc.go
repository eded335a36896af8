// Package producer contains the drivers that feed a ringlog.Logger from
// outside the library: a line pump for host processes and a stress
// driver that reproduces the fast, slow and combined flush paths.
package producer
