package main

import (
	"fmt"

	"github.com/trezcool/cyberlab/core/grader"
	"github.com/trezcool/cyberlab/core/quiz"
)

func (cli *commandLine) grade(correct, answer string) error {
	policy := quiz.PolicyFromConfig(cli.conf.Grader)
	res := policy.Evaluate(answer, correct)

	fmt.Fprintf(cli.out, "normalized answer:  %q\n", res.NormalizedUser)
	fmt.Fprintf(cli.out, "normalized correct: %q\n", res.NormalizedCorrect)
	fmt.Fprintf(cli.out, "stage:              %s\n", res.Stage)
	fmt.Fprintf(cli.out, "similarity:         %.2f (threshold %.2f)\n", res.Similarity, policy.SimilarityThreshold)
	fmt.Fprintf(cli.out, "closeness:          %.2f\n", grader.Closeness(answer, correct))
	fmt.Fprintf(cli.out, "correct:            %t\n", res.Correct)
	return nil
}
