// Package transform turns eligible code blocks of a page into interactive
// embeds.
//
// A block is eligible when the first token of its label starts with the
// language tag ("rust") and one of its comma-separated modifiers starts with
// the marker ("iced"), e.g. ```rust,iced(height=300px). Each eligible block is
// compiled and, on success, followed by an embed; the first embed of a page is
// preceded by the loader bootstrap. Everything else in the page is left
// byte-for-byte untouched.
package transform
