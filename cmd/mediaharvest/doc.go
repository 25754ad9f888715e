// Command mediaharvest is the operator CLI and daemon entry point for the
// media harvesting pipeline.
package main
