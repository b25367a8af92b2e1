// Package flags decodes sticky hardware status words into symbolic error
// flags.
//
// Decoding is table driven: each generation's FlagTable maps bit fields of
// status blocks to flag names, and routes link-group scoped blocks to the
// group-keyed output. Reading status only happens on register-accurate
// platforms; simulated platforms report no flags.
package flags
