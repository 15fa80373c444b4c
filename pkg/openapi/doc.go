// Package openapi describes instrument submissions as an OpenAPI 3 document.
// Each instrument gets a POST operation whose request body is the answer
// set and whose responses are the measure view or the batch of validation
// issues. The document is built and checked with kin-openapi.
//
// Dynamic fields appear as optional properties tagged with the
// x-labforms-dynamic extension; whether they are required depends on the
// other answers and is enforced by the validation gate, not the schema.
package openapi
