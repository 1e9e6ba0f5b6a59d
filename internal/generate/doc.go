// Package generate implements the content-generation stages that the
// workflow manager chains per content type: prose and scripts from the
// language model, still images, narration audio, procedural music, and the
// final video or book assembly.
//
// Every stage writes into the job's working directory under fixed file
// names, so downstream stages locate their inputs by convention rather
// than by threading paths through the pipeline. Handlers are constructed
// fresh per job run and honor the configured test mode by producing
// deterministic local artifacts without any provider calls.
package generate
