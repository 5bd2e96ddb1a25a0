package main

var usage = `%s compiles a decision-DNNF and its CNF into a CPOG proof.

It takes 2 arguments: the CNF file and the d-DNNF file.

	%s input.cnf input.nnf > output.cpog

%s takes the following flags.

`
