// Package nitter fetches recent posts for an account from a single mirror.
//
// Two clients share the Fetcher interface:
//
//   - HTMLClient scrapes a Nitter front-end's timeline pages and follows the
//     "load more" cursor until enough posts are collected.
//   - JSONClient queries a JSON bridge that answers with {"tweets": [...]}.
//
// Both report "nothing here" as an empty Timeline with a nil error. Any
// error return means the mirror itself failed and the caller should fall
// back to the next one.
package nitter
