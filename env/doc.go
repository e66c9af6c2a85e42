// Package env provides the environment store used to resolve %NAME%
// references in project files, and a reader for the SET assignments of
// rsvars.bat scripts.
//
// A [Store] is an ordered mapping with case-insensitive keys. Keys are
// normalized to upper case. Iteration follows the order in which each key
// was first inserted; later writes replace the value in place.
//
// Stores are layered from lowest to highest priority:
//
//  1. process environment ([Store.SeedFromProcessEnv], [FromEnviron])
//  2. rsvars content ([Store.MergeRsvars], [ParseRsvars])
//  3. explicit overrides ([Store.Override])
//
// No operation removes a key.
package env
