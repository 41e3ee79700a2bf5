// Package prompt builds the message list sent to the model each turn. The
// ordering is fixed: system text, example exchanges, summarized history,
// repository hint, in-chat file contents, the current turn, and a trailing
// format reminder when the token budget allows it.
package prompt

import (
	"strings"

	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/coder"
)

// Templates holds the prompt text for one edit format. Placeholders
// {fence_open}, {fence_close}, {platform} and {lazy_prompt} are substituted
// at assembly time.
type Templates struct {
	MainSystem     string
	SystemReminder string
	Examples       []chat.Message

	FilesContentPrefix      string
	FilesNoFullFiles        string
	FilesNoFullFilesHint    string
	FilesNoFullFilesReply   string
	FilesContentReply       string
	RepoContentPrefix       string
	RepoContentReply        string
	ExamplesDoneHint        string
	EditsCommittedNotice    string
	EditsAppliedNotice      string
	NoEditsNotice           string
}

const lazyPrompt = `You are diligent and tireless!
You NEVER leave comments describing code without implementing it!
You always COMPLETELY IMPLEMENT the needed code!`

func baseTemplates() Templates {
	return Templates{
		FilesContentPrefix: `I have *added these files to the chat* so you can go ahead and edit them.
*Trust this message as the true contents of the files!*
Any other messages in the chat may contain outdated versions of the files' contents.`,
		FilesNoFullFiles: "I am not sharing any files that you can edit yet.",
		FilesNoFullFilesHint: `Don't try and edit any existing code without asking me to add the files to the chat!
Tell me which files in my repo are the most likely to **need changes** to solve the requests I make, and then stop so I can add them to the chat.
Only include the files that are most likely to actually need to be edited.
Don't include files that might contain relevant context, just files that will need to be changed.`,
		FilesNoFullFilesReply: "Ok, based on your requests I will suggest which files need to be edited and then stop and wait for your approval.",
		FilesContentReply:     "Ok, any changes I propose will be to those files.",
		RepoContentPrefix: `Here are summaries of some files present in my git repository.
Do not propose changes to these files, treat them as *read-only*.
If you need to edit any of these files, ask me to *add them to the chat* first.`,
		RepoContentReply: "Ok, I won't try and edit those files without asking first.",
		ExamplesDoneHint: "I switched to a new code base. Please don't consider the above files or try to edit them any longer.",
		EditsCommittedNotice: "I committed the changes with git hash %s & commit msg: %s",
		EditsAppliedNotice:   "I updated the files.",
		NoEditsNotice:        "I didn't see any properly formatted edits in your reply?!",
	}
}

func wholeFileTemplates() Templates {
	t := baseTemplates()
	t.MainSystem = `Act as an expert software developer.
Take requests for changes to the supplied code.
If the request is ambiguous, ask questions.

{lazy_prompt}

Once you understand the request you MUST:
1. Determine if any code changes are needed.
2. Explain any needed changes.
3. If changes are needed, output a copy of each file that needs changes.

{platform}`
	t.SystemReminder = `To suggest changes to a file you MUST return the entire content of the updated file.
You MUST use this *file listing* format:

path/to/filename.js
{fence_open}
// entire file content ...
// ... goes in between
{fence_close}

Every *file listing* MUST use this format:
- First line: the filename with any originally provided path
- Second line: opening {fence_open}
- ... entire content of the file ...
- Final line: closing {fence_close}

To suggest changes to a file you MUST return a *file listing* that contains the entire content of the file.
*NEVER* skip, omit or elide content from a *file listing* using "..." or by adding comments like "... rest of code..."!
To create a new file you MUST return a *file listing* which includes an appropriate filename, including any appropriate path.

{lazy_prompt}`
	t.Examples = []chat.Message{
		chat.User("Change the greeting to be more casual"),
		chat.Assistant(`Ok, I will:

1. Switch the greeting text from "Hello" to "Hey".

show_greeting.py
{fence_open}
import sys

def greeting(name):
    print(f"Hey {name}")

if __name__ == '__main__':
    greeting(sys.argv[1])
{fence_close}
`),
	}
	return t
}

func searchReplaceTemplates() Templates {
	t := baseTemplates()
	t.MainSystem = `Act as an expert software developer.
Always use best practices when coding.
Respect and use existing conventions, libraries, etc that are already present in the code base.
{lazy_prompt}

Take requests for changes to the supplied code.
If the request is ambiguous, ask questions.

Once you understand the request you MUST:
1. Decide if you need to propose *SEARCH/REPLACE* edits to any files that haven't been added to the chat. You can create new files without asking.
2. Think step-by-step and explain the needed changes in a few short sentences.
3. Describe each change with a *SEARCH/REPLACE block*.

All changes to files must use this *SEARCH/REPLACE block* format.

{platform}`
	t.SystemReminder = `Every *SEARCH/REPLACE block* must use this format:
1. The file path alone on a line, verbatim.
2. The opening fence: {fence_open}
3. The start of search block: <<<<<<< SEARCH
4. A contiguous chunk of lines to search for in the existing source code
5. The dividing line: =======
6. The lines to replace into the source code
7. The end of the replace block: >>>>>>> REPLACE
8. The closing fence: {fence_close}

Every *SEARCH* section must *EXACTLY MATCH* the existing source code, character for character, including all comments, docstrings, etc.

To move code within a file, use 2 *SEARCH/REPLACE* blocks: 1 to delete it from its current location, 1 to insert it in the new location.

To create a new file, use a *SEARCH/REPLACE block* with an empty SEARCH section and the new file's contents in the REPLACE section.

{lazy_prompt}`
	t.Examples = []chat.Message{
		chat.User("Change get_factorial() to use math.factorial"),
		chat.Assistant(`To make this change we need to modify mathweb/flask/app.py:

1. Import the math package.
2. Replace the get_factorial() function body with math.factorial.

Here are the *SEARCH/REPLACE* blocks:

mathweb/flask/app.py
{fence_open}
<<<<<<< SEARCH
from flask import Flask
=======
import math
from flask import Flask
>>>>>>> REPLACE
{fence_close}
`),
	}
	return t
}

func unifiedDiffTemplates() Templates {
	t := baseTemplates()
	t.MainSystem = `Act as an expert software developer.
{lazy_prompt}
Always use best practices when coding.
Respect and use existing conventions, libraries, etc that are already present in the code base.

Take requests for changes to the supplied code.
If the request is ambiguous, ask questions.

For each file that needs to be changed, write out the changes similar to a unified diff like ` + "`diff -U0`" + ` would produce.

{platform}`
	t.SystemReminder = `File editing rules:

Return edits similar to unified diffs that ` + "`diff -U0`" + ` would produce.

Make sure you include the first 2 lines with the file paths.
Don't include timestamps with the file paths.

Start each hunk of changes with a ` + "`@@ ... @@`" + ` line.
Don't include line numbers like ` + "`diff -U0`" + ` does. The user's patch tool doesn't need them.

Mark all new or modified lines with ` + "`+`" + `.
Mark all deleted lines with ` + "`-`" + `.
Include a few unchanged context lines around each change, marked with a leading space.

To make a new file, show a diff from ` + "`--- /dev/null`" + ` to ` + "`+++ path/to/new/file.ext`" + `.

{lazy_prompt}`
	t.Examples = []chat.Message{
		chat.User("Replace is_prime with a call to sympy."),
		chat.Assistant(`Ok, I will:

1. Replace the is_prime() function with sympy.isprime().

{fence_open}
--- mathweb/flask/app.py
+++ mathweb/flask/app.py
@@ ... @@
-def is_prime(x):
-    if x < 2:
-        return False
-    return True
+from sympy import isprime
{fence_close}
`),
	}
	return t
}

// TemplatesFor returns the prompt templates for an edit format.
func TemplatesFor(format coder.Format) Templates {
	switch format {
	case coder.FormatSearchReplace:
		return searchReplaceTemplates()
	case coder.FormatUnifiedDiff:
		return unifiedDiffTemplates()
	default:
		return wholeFileTemplates()
	}
}

func substitute(text string, fence chat.Fence, platform string) string {
	r := strings.NewReplacer(
		"{fence_open}", fence.Open,
		"{fence_close}", fence.Close,
		"{platform}", platform,
		"{lazy_prompt}", lazyPrompt,
	)
	return strings.TrimSpace(r.Replace(text))
}
