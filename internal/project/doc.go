// Package project finds the front-end project inside an extracted upload and
// classifies its framework.
//
// Exports from no-code builders are often nested one or more directories deep
// and sometimes carry several package.json files. Locate scores every
// candidate and picks the most likely project root; DetectFramework inspects
// config files and declared dependencies. Manifest is an order-preserving view
// of package.json used for both detection and later rewrites.
package project
