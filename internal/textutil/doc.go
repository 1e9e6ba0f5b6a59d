// Package textutil provides text processing utilities for filename slugs,
// paragraph splitting, and prompt excerpts.
//
// The primary use cases are:
//   - Deriving portable filenames from free-text topics and titles
//   - Splitting generated prose into paragraphs for scene images and captions
//   - Trimming paragraph text into bounded image prompts
//
// The excerpt helpers are content-quality heuristics, not contracts; pipeline
// code must not depend on their exact output beyond the documented bounds.
package textutil
