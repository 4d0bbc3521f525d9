// Package oracle wraps a language model behind a structured-inference
// contract.
//
// Callers hand Infer a prompt, a JSON schema, and a destination value; the
// oracle is responsible for getting output that conforms. Output that
// violates the schema is retried once with a corrective prompt describing
// the violation. If the retry also fails, the destination is left at its
// zero value and ErrInvalidOutput is returned so the caller can route to a
// recovery branch instead of trusting bad data.
package oracle
